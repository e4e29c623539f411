package domain

import "context"

// SlotPool limita quantas requests atravessam o gate ao mesmo tempo.
//
// Acquire bloqueia até existir vaga ou o ctx encerrar. Em caso de sucesso o
// release devolvido deve ser chamado uma única vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
