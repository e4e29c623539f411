// Package domain define o modelo do registro de API key, os contratos
// (Storage, Limiter, CounterStore, Manager, StatsStore, SlotPool) e a
// taxonomia de erros das camadas de storage, limiter e manager.
//
// Este pacote não depende de net/http nem de implementações concretas.
// Os únicos imports externos são os codecs do documento (BSON/YAML) do Limit.
package domain
