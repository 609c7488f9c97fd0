package factory

import (
	"github.com/newthinker/swingsim/internal/commentary"
	"github.com/newthinker/swingsim/internal/commentary/claude"
	"github.com/newthinker/swingsim/internal/commentary/openai"
	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/core"
)

// New creates a commentator based on configuration. It returns nil when no
// provider is configured.
func New(cfg config.CommentaryConfig) (*commentary.Narrator, error) {
	var (
		p   commentary.Provider
		err error
	)
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		p, err = claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		p, err = openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown commentary provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, core.WrapError(core.ErrConfigMissing, err)
	}
	return commentary.New(p), nil
}
