// Package apikey fornece o gate HTTP (net/http) de autenticação por API key
// com quota por chave, e um limite de concorrência opcional.
//
// Camadas:
//
//   - domain: registro da chave, ports (Storage, Limiter, CounterStore, Manager) e erros por camada
//   - application: KeyManager (storage -> status/domínio -> limiter) e ConcurrencyService
//   - infra: backends de storage (memória, MongoDB, PostgreSQL, cache LRU), limiters
//     (janela fixa sobre Redis ou go-cache, token bucket) e estatísticas
//   - apikey (este pacote): middlewares HTTP, extração da chave e tradução de erro para status/JSON
//
// Fluxo por request:
//
//  1. Lê a chave do header (x-api-key por padrão)
//  2. Chama Manager.Authorize
//  3. Se rejeitado, responde {"message": ..., "type": ...} com 401 ou 500
//  4. Se autorizado, chama o próximo handler sem alterar a resposta
//
// Falhas de storage são logadas com o detalhe completo, mas chegam ao cliente
// como InvalidApiKey (a não ser com ExposeStorageErrors).
package apikey
