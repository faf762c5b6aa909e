// Package application contém os casos de uso (regras de aplicação) para rate
// limit e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Check(ctx, identifier, endpoint) retorna uma Decision
// (allow/deny + contadores para os headers X-RateLimit-*), sempre caindo em
// fail-open quando o store de janelas falha.
package application
