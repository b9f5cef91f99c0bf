package discord

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"sorting-hat/internal/config"
	"sorting-hat/internal/repository"
	"sorting-hat/internal/service"
)

var (
	ErrAlreadyRunning = errors.New("bot already running")
	ErrNotRunning     = errors.New("bot not running")
)

// Bot owns the gateway session and wires chat events into the quiz and
// reconciliation services. Start/Stop/Restart back the lifecycle endpoints
// of the control surface.
type Bot struct {
	cfg     *config.Config
	logger  *zap.Logger
	quiz    *service.SessionService
	roles   *service.RoleService
	scanner *service.ScanService
	limiter service.SortRateLimiter
	results repository.ResultRepository

	revealDelay time.Duration

	mu      sync.Mutex
	session *discordgo.Session
	running bool
	ready   atomic.Bool
}

func New(
	cfg *config.Config,
	logger *zap.Logger,
	quiz *service.SessionService,
	roles *service.RoleService,
	scanner *service.ScanService,
	limiter service.SortRateLimiter,
	results repository.ResultRepository,
) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildMembers

	b := &Bot{
		cfg:         cfg,
		logger:      logger,
		quiz:        quiz,
		roles:       roles,
		scanner:     scanner,
		limiter:     limiter,
		results:     results,
		revealDelay: time.Duration(cfg.RevealDelayMS) * time.Millisecond,
		session:     session,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildMemberAdd)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	return b, nil
}

func (b *Bot) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return ErrAlreadyRunning
	}
	if err := b.session.Open(); err != nil {
		return err
	}
	b.running = true
	return nil
}

func (b *Bot) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return ErrNotRunning
	}
	b.ready.Store(false)
	b.running = false
	return b.session.Close()
}

func (b *Bot) Restart() error {
	if err := b.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return b.Start()
}

// Ready reports whether the gateway handshake completed.
func (b *Bot) Ready() bool { return b.ready.Load() }

func (b *Bot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Guilds exposes every connected guild through the capability interface.
func (b *Bot) Guilds() []service.Guild {
	var out []service.Guild
	for _, g := range b.session.State.Guilds {
		out = append(out, newGuildAdapter(b.session, g.ID, g.Name))
	}
	return out
}

// Guild resolves a single connected guild by ID.
func (b *Bot) Guild(guildID string) (service.Guild, bool) {
	g, err := b.session.State.Guild(guildID)
	if err != nil {
		return nil, false
	}
	return newGuildAdapter(b.session, g.ID, g.Name), true
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.ready.Store(true)
	b.logger.Info("the sorting hat has awakened",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))

	// Backfill results from roles assigned while the bot was offline.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		b.scanner.ReconcileFromGuilds(ctx, b.Guilds())
	}()
}
