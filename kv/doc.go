// Package kv fornece um cliente mínimo de key-value store por comandos.
//
// Visão geral:
//
//   - Doer: contrato de transporte (um comando ou pipeline atômico)
//   - RestClient: backend REST (comandos via HTTP POST com bearer token)
//   - RedisStore: backend Redis direto via go-redis
//   - Memory: backend em memória para testes e desenvolvimento local
//   - Client: wrappers tipados (Get/Set/SetJSON/GetJSON/Incr/Expire/...)
//
// O store é uma otimização, nunca uma dependência de correção: sem
// credenciais, todo comando vira no-op com resultado nulo, e falhas de
// transporte são logadas e tratadas pelo chamador como miss/fail-open.
// Não há retry.
package kv
