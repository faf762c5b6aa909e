// Package api expõe os handlers HTTP do backend de IA: geração de layout
// de dashboard (streaming via SSE ou bufferizado), projeção de fluxo de
// caixa e introspecção do cache.
//
// Todo handler segue a mesma sequência fixa: autenticação, rate limit,
// chave de cache, consulta ao cache (a menos de refresh=true), computação
// ou streaming, write-through nos dois níveis, resposta. Toda resposta,
// inclusive as cacheadas, carrega os headers X-RateLimit-* e X-Cache/
// X-Cache-Source/X-Cache-TTL.
package api
