package cmd

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/appforge/flowcore/pkg/blocks/ai"
	"github.com/appforge/flowcore/pkg/blocks/authverify"
	"github.com/appforge/flowcore/pkg/expr"
	"github.com/appforge/flowcore/pkg/mailer"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/session"
	"github.com/appforge/flowcore/pkg/tables"
)

// CollaboratorConfig holds the settings for the external services
// blocks call out to.
type CollaboratorConfig struct {
	JWTSecret      string
	OpenAIKey      string
	OpenAIModel    string
	MailServiceURL string
	MailAPIKey     string
}

// NewDependencies assembles the registry's collaborator set from the
// shared infrastructure handles.
func NewDependencies(logger *slog.Logger, db *sql.DB, tablesService *tables.Service, redisClient *redis.Client, cfg CollaboratorConfig) Dependencies {
	evaluator, err := expr.NewEvaluator()
	if err != nil {
		panic(err)
	}

	var mail protocol.Mailer = mailer.NewNopMailer(logger)
	if cfg.MailServiceURL != "" {
		mail = mailer.NewHTTPMailer(cfg.MailServiceURL, cfg.MailAPIKey, nil)
	}

	var blacklist protocol.TokenBlacklist
	if redisClient != nil {
		blacklist = session.NewRedisBlacklist(redisClient)
	}

	return Dependencies{
		Tables:     tablesService,
		Limiter:    NewRateLimiter(redisClient),
		HTTPClient: &http.Client{},
		Evaluator:  evaluator,
		Mailer:     mail,
		Summarizer: ai.NewOpenAISummarizer(cfg.OpenAIKey, cfg.OpenAIModel),
		Verifier:   authverify.NewJWTVerifier([]byte(cfg.JWTSecret)),
		Blacklist:  blacklist,
		Users:      session.NewPostgresUserStore(db, logger),
	}
}
