// Package dependency wires core maitred services using go.uber.org/dig.
package dependency

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.uber.org/dig"

	"github.com/maitred-ai/maitred/internal/concierge"
	"github.com/maitred-ai/maitred/internal/config"
	"github.com/maitred-ai/maitred/internal/mcpserver"
	"github.com/maitred-ai/maitred/internal/notify"
	"github.com/maitred-ai/maitred/internal/providers"
	"github.com/maitred-ai/maitred/internal/reminder"
	"github.com/maitred-ai/maitred/internal/schema"
	"github.com/maitred-ai/maitred/internal/session"
	"github.com/maitred-ai/maitred/internal/tools"
	"github.com/maitred-ai/maitred/internal/voice"
)

// Version is stamped by the build; it ends up in initialize responses.
var Version = "dev"

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	provider  schema.LLMProvider
	store     *session.Store
	registry  *tools.Registry
	server    *mcpserver.Server
	reminders *reminder.Service
	notifier  *notify.Multi
}

func (c *Container) Provider() schema.LLMProvider   { return c.provider }
func (c *Container) Store() *session.Store          { return c.store }
func (c *Container) Registry() *tools.Registry      { return c.registry }
func (c *Container) Server() *mcpserver.Server      { return c.server }
func (c *Container) Reminders() *reminder.Service   { return c.reminders }
func (c *Container) Notifier() *notify.Multi        { return c.notifier }

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(newMistral); err != nil {
		return nil, err
	}
	if err := d.Provide(newSessionStore); err != nil {
		return nil, err
	}
	if err := d.Provide(newOrchestrator); err != nil {
		return nil, err
	}
	if err := d.Provide(newVoiceClient); err != nil {
		return nil, err
	}
	if err := d.Provide(newPoller); err != nil {
		return nil, err
	}
	if err := d.Provide(newScriptBook); err != nil {
		return nil, err
	}
	if err := d.Provide(newReminderService); err != nil {
		return nil, err
	}
	if err := d.Provide(newNotifier); err != nil {
		return nil, err
	}
	if err := d.Provide(newToolRegistry); err != nil {
		return nil, err
	}
	if err := d.Provide(newServer); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(
		mistral *providers.MistralProvider,
		store *session.Store,
		registry *tools.Registry,
		server *mcpserver.Server,
		reminders *reminder.Service,
		notifier *notify.Multi,
	) {
		result = &Container{
			provider:  mistral,
			store:     store,
			registry:  registry,
			server:    server,
			reminders: reminders,
			notifier:  notifier,
		}
	})
	return result, err
}

func newMistral(cfg *config.Config) (*providers.MistralProvider, error) {
	mc := cfg.Providers.Mistral
	if mc.APIKey == "" {
		return nil, fmt.Errorf("no Mistral API key configured — edit %s", config.ConfigPath())
	}
	return providers.NewMistralProvider(mc.APIKey, mc.APIBase, mc.Model), nil
}

func newSessionStore(cfg *config.Config) (*session.Store, error) {
	return session.NewStore(cfg.WorkspacePath())
}

func newOrchestrator(cfg *config.Config, mistral *providers.MistralProvider, store *session.Store) *concierge.Orchestrator {
	return concierge.New(mistral, mistral, store, cfg.Concierge.Model)
}

func newVoiceClient(cfg *config.Config) *voice.Client {
	return voice.NewClient(cfg.Voice.APIKey, cfg.Voice.APIBase)
}

func newPoller(cfg *config.Config, client *voice.Client) *voice.Poller {
	policy := voice.DefaultPollPolicy()
	if cfg.Voice.PollIntervalSeconds > 0 {
		policy.Interval = time.Duration(cfg.Voice.PollIntervalSeconds) * time.Second
	}
	if cfg.Voice.PollDeadlineSeconds > 0 {
		policy.Deadline = time.Duration(cfg.Voice.PollDeadlineSeconds) * time.Second
	}
	return voice.NewPoller(client, policy)
}

func newScriptBook(cfg *config.Config) (*voice.ScriptBook, error) {
	return voice.LoadScriptBook(cfg.ScriptsPath())
}

func newReminderService(cfg *config.Config) *reminder.Service {
	path := filepath.Join(config.DataDir(), "reminders", "jobs.json")
	_ = cfg // reserved for future per-config reminder settings
	return reminder.NewService(path)
}

func newNotifier(cfg *config.Config) *notify.Multi {
	var targets []notify.Notifier
	if tg := cfg.Notifications.Telegram; tg.Enabled {
		n, err := notify.NewTelegramNotifier(tg.Token, tg.ChatID)
		if err != nil {
			slog.Warn("telegram notifications disabled", "err", err)
		} else {
			targets = append(targets, n)
		}
	}
	if sl := cfg.Notifications.Slack; sl.Enabled {
		n, err := notify.NewSlackNotifier(sl.BotToken, sl.Channel)
		if err != nil {
			slog.Warn("slack notifications disabled", "err", err)
		} else {
			targets = append(targets, n)
		}
	}
	return notify.NewMulti(targets...)
}

func newToolRegistry(
	cfg *config.Config,
	orchestrator *concierge.Orchestrator,
	store *session.Store,
	client *voice.Client,
	poller *voice.Poller,
	scripts *voice.ScriptBook,
	reminders *reminder.Service,
	notifier *notify.Multi,
) *tools.Registry {
	var sched tools.ReminderScheduler
	if cfg.Reminders.Enabled {
		sched = reminders
	}
	var notif tools.Notifier
	if notifier.Enabled() {
		notif = notifier
	}
	return tools.NewRegistryBuilder().
		WithTool(tools.NewFindRestaurantTool(orchestrator)).
		WithTool(tools.NewFindActivityTool(orchestrator)).
		WithTool(tools.NewBookTableTool(store, client, poller, scripts, sched, notif)).
		WithTool(tools.NewCalendarLinkTool()).
		WithTool(tools.NewVenueDetailsTool(0)).
		Build()
}

func newServer(registry *tools.Registry) *mcpserver.Server {
	return mcpserver.NewServer(registry, Version)
}
