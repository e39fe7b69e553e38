package http

import (
	"github.com/nats-io/nats.go"

	"github.com/asiergil/ctfgeo/internal/adapters/postgres"
	"github.com/asiergil/ctfgeo/internal/adapters/valkey"
	"github.com/asiergil/ctfgeo/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Challenges *usecases.ChallengeService
	Attempts   *usecases.AttemptService
	Scores     *usecases.ScoreService
	Registry   *usecases.TypeRegistry
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
}
