package bot

import (
	"time"

	"PruneBot/command"
	"PruneBot/config"
	"PruneBot/database"
	"PruneBot/logger"
	"PruneBot/services"
	"PruneBot/utils"

	"github.com/bwmarrin/discordgo"
)

var (
	store        *services.ActivityStore
	tracker      *services.VoiceTracker
	reports      *services.ReportService
	commandQueue chan *discordgo.InteractionCreate
	workerPool   chan struct{}
)

const (
	maxQueueSize = 1000
	maxWorkers   = 10
	// Scans and hydrations can run for minutes; handlers defer the
	// interaction response, so this is a watchdog rather than a deadline
	// for Discord's three second acknowledgement window.
	workerTimeout = 15 * time.Minute
)

func StartBot() (*discordgo.Session, error) {
	cfg := config.Get()

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates

	store = services.NewActivityStore(database.DB)
	tracker = services.NewVoiceTracker(store)
	directory := services.NewDiscordDirectory(session)
	scanner := services.NewScanner(store, directory)
	hydrator := services.NewHydrator(store, directory, cfg.HydrationPageInterval, cfg.MaxPageRetries)
	settings := services.NewSettingsService(database.DB, directory)
	settings.DefaultModLogChannelID = cfg.ModLogChannelID
	settings.DefaultSnapshotChannelID = cfg.SnapshotChannelID

	reports = services.NewReportService(scanner, store, settings)
	reports.WindowDays = cfg.DefaultWindowDays
	reports.MinVoiceMinutes = cfg.DefaultMinVoiceMinutes

	session.AddHandler(messageCreate)
	session.AddHandler(voiceStateUpdate)

	if err := session.Open(); err != nil {
		return nil, err
	}

	command.RegisterCommands(session, command.Deps{
		Store:    store,
		Scanner:  scanner,
		Hydrator: hydrator,
		Settings: settings,
	})

	commandQueue = make(chan *discordgo.InteractionCreate, maxQueueSize)
	workerPool = make(chan struct{}, maxWorkers)

	for i := 0; i < maxWorkers; i++ {
		go worker(session)
	}

	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		select {
		case commandQueue <- i:
			logger.Log.Debugf("Command queued: %s", i.ApplicationCommandData().Name)
		default:
			logger.Log.Warn("Command queue is full, dropping command")
			s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "The bot is currently experiencing high load. Please try again later.",
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
		}
	})

	reports.StartDailyReports(session, cfg.ReportInterval)

	return session, nil
}

// messageCreate feeds live text activity into the store. Write failures are
// logged and the event dropped; the listener must never crash.
func messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}
	if err := store.RecordMessage(m.GuildID, m.Author.ID, m.Timestamp.UnixMilli()); err != nil {
		logger.Log.WithError(err).
			WithField("guild", m.GuildID).
			WithField("user", m.Author.ID).
			Error("Failed to record message, dropping event")
	}
}

func voiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs.GuildID == "" {
		return
	}
	tracker.HandleVoiceState(vs.GuildID, vs.UserID, vs.ChannelID)
}

func worker(s *discordgo.Session) {
	for event := range commandQueue {
		workerPool <- struct{}{}
		processCommand(s, event)
		<-workerPool
	}
}

func processCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("Panic recovered in processCommand: %v", r)
		}
	}()

	if !runWithTimeout(func() { command.HandleCommand(s, i) }, workerTimeout) {
		logger.Log.Warnf("Command processing timed out: %s", i.ApplicationCommandData().Name)
		// The handler already deferred the interaction, so the user would
		// otherwise be left with a spinner forever.
		utils.SendFollowupMessage(s, i,
			"This command took too long and was abandoned. Please try again later.", true)
	}
}

// runWithTimeout runs fn, reporting false when it outlives the budget. The
// goroutine running fn is not cancelled; it finishes on its own.
func runWithTimeout(fn func(), timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
