// Package ratelimit fornece adapters HTTP (net/http) para o rate limit de
// janela deslizante e para o limite de concorrência das chamadas de IA.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny com fail-open) sem net/http
//   - infra: implementações concretas (janela deslizante no KV store,
//     contadores de decisão, semáforo), detalhes de infraestrutura
//   - ratelimit (este pacote): middlewares HTTP + extração de identificador +
//     tradução para status/headers (X-RateLimit-*, Retry-After, 429)
//
// Fluxo nos endpoints de IA:
//
//  1. Extrai o identificador (usuário autenticado, header ou IP/XFF)
//  2. Chama a camada application para obter a decisão (pipeline atômico no KV)
//  3. Se bloqueado, responde 429 com corpo JSON e Retry-After
//  4. Se permitido, chama o próximo handler com os headers informativos
//
// Se o KV store estiver indisponível ou sem credenciais, o limiter admite
// tudo (fail-open): a camada de otimização nunca vira dependência de
// disponibilidade.
package ratelimit
