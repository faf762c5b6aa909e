package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_ForwardsProseUntilFirstBrace(t *testing.T) {
	var agg Aggregator
	var streamed strings.Builder

	deltas := []string{"Here is ", "your dash", "board layout: ", `{"widgets":`, `[1,2]}`}
	for _, d := range deltas {
		streamed.WriteString(agg.Feed(d))
	}

	// tudo antes do "{" saiu como texto, nada do documento vazou
	assert.Equal(t, "Here is your dashboard layout: ", streamed.String())

	doc, err := agg.Finish()
	require.NoError(t, err)
	assert.JSONEq(t, `{"widgets":[1,2]}`, string(doc))
}

func TestAggregator_BraceInMiddleOfDelta(t *testing.T) {
	var agg Aggregator
	text := agg.Feed(`sure! {"a":1}`)
	assert.Equal(t, "sure! ", text)

	doc, err := agg.Finish()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(doc))
}

func TestAggregator_NoDocumentIsFatal(t *testing.T) {
	var agg Aggregator
	agg.Feed("sorry, I cannot help with that")

	_, err := agg.Finish()
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestAggregator_TrailingProseBreaksExtraction(t *testing.T) {
	// recorte guloso: um "}" em prosa depois do documento invalida o parse
	var agg Aggregator
	agg.Feed(`{"a":1} and that closes it }`)

	_, err := agg.Finish()
	assert.Error(t, err)
}

func TestAggregator_NestedObjectsSurvive(t *testing.T) {
	var agg Aggregator
	agg.Feed(`layout: {"rows":[{"id":1},{"id":2}]}`)

	doc, err := agg.Finish()
	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":[{"id":1},{"id":2}]}`, string(doc))
}

// sseServer emite cada delta como um chunk no formato do provedor.
func sseServer(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			payload, _ := json.Marshal(d)
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%s}}]}\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestStreamChat_DeliversDeltasInOrder(t *testing.T) {
	srv := sseServer(t, []string{"one ", "two ", "three"})
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model")
	var got []string
	err := c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}},
		func(delta string) error {
			got = append(got, delta)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"one ", "two ", "three"}, got)
}

func TestGenerate_ProseThenDocument(t *testing.T) {
	srv := sseServer(t, []string{"Generating your layout... ", `{"widgets":`, `["spending","goals"]}`})
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model")
	var prose strings.Builder
	doc, err := c.Generate(context.Background(), []Message{{Role: "user", Content: "layout"}},
		func(text string) error {
			prose.WriteString(text)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, "Generating your layout... ", prose.String())
	assert.JSONEq(t, `{"widgets":["spending","goals"]}`, string(doc))
}

func TestStreamChat_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model")
	err := c.StreamChat(context.Background(), nil, func(string) error { return nil })
	assert.Error(t, err)
}

func TestStreamChat_Disabled(t *testing.T) {
	c := NewClient("", "", "")
	assert.False(t, c.Enabled())

	err := c.StreamChat(context.Background(), nil, func(string) error { return nil })
	assert.ErrorIs(t, err, ErrDisabled)
}
