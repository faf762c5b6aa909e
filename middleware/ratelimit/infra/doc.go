// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - SlidingWindowStore: janela deslizante via pipeline atômico no KV store
//   - MemoryStats / KVStats: contadores de decisão por endpoint
//   - ChanPool: semáforo simples para limite de concorrência
package infra
