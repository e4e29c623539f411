// Package application contém os casos de uso do gate de API key.
//
// Depende apenas do pacote domain e não conhece net/http.
// Ex.: KeyManager.Authorize(ctx, key) resolve a chave no Storage e consome
// quota no Limiter, devolvendo um domain.ManagerError em caso de falha.
package application
