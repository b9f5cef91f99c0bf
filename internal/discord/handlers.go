package discord

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"sorting-hat/internal/domain"
	"sorting-hat/internal/service"
)

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	content := strings.ToLower(strings.TrimSpace(m.Content))
	prefix := b.cfg.CommandPrefix
	if content != prefix+"sort" && content != prefix+"sortinghat" {
		return
	}

	if key, ok := b.results.Get(m.Author.ID); ok {
		house, _ := domain.HouseByKey(key)
		b.reply(s, m, alreadySortedReply(house))
		return
	}

	if b.limiter != nil && !b.limiter.Allow(m.Author.ID) {
		b.reply(s, m, "The Sorting Hat needs a moment to rest. Try again shortly.")
		return
	}

	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{ceremonyEmbed(len(domain.Questions))},
		Components: []discordgo.MessageComponent{startButtonRow()},
		Reference:  m.Reference(),
	})
	if err != nil {
		b.logger.Warn("send ceremony message failed", zap.Error(err))
	}
}

func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}

	channel := b.findWelcomeChannel(s, m.GuildID)
	if channel == "" {
		b.logger.Info("no suitable welcome channel", zap.String("guild", m.GuildID))
		return
	}

	_, err := s.ChannelMessageSendComplex(channel, &discordgo.MessageSend{
		Content:    m.User.Mention(),
		Embeds:     []*discordgo.MessageEmbed{welcomeEmbed()},
		Components: []discordgo.MessageComponent{startButtonRow()},
	})
	if err != nil {
		b.logger.Warn("send welcome message failed",
			zap.String("guild", m.GuildID), zap.Error(err))
		return
	}
	b.logger.Info("welcomed new member",
		zap.String("user", m.User.Username), zap.String("guild", m.GuildID))
}

// findWelcomeChannel prefers the guild's system channel, then the first text
// channel the bot can post embeds in.
func (b *Bot) findWelcomeChannel(s *discordgo.Session, guildID string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return ""
	}

	const needed = discordgo.PermissionSendMessages | discordgo.PermissionEmbedLinks
	if guild.SystemChannelID != "" && b.hasChannelPerms(s, guild.SystemChannelID, needed) {
		return guild.SystemChannelID
	}
	for _, ch := range guild.Channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if b.hasChannelPerms(s, ch.ID, needed|discordgo.PermissionViewChannel) {
			return ch.ID
		}
	}
	return ""
}

func (b *Bot) hasChannelPerms(s *discordgo.Session, channelID string, needed int64) bool {
	perms, err := s.State.UserChannelPermissions(s.State.User.ID, channelID)
	if err != nil {
		return false
	}
	return perms&needed == needed
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	userID := interactionUserID(i)
	if userID == "" {
		return
	}
	customID := i.MessageComponentData().CustomID

	switch {
	case customID == customIDStart:
		b.handleStart(s, i, userID)
	case strings.HasPrefix(customID, customIDAnswerPrefix):
		b.handleAnswer(s, i, userID, customID)
	}
}

func (b *Bot) handleStart(s *discordgo.Session, i *discordgo.InteractionCreate, userID string) {
	if b.limiter != nil && !b.limiter.Allow(userID) {
		b.respondEphemeralText(s, i, "The Sorting Hat needs a moment to rest. Try again shortly.")
		return
	}

	step, err := b.quiz.Begin(userID)
	if errors.Is(err, service.ErrAlreadySorted) {
		reply := "You have already been sorted! The Sorting Hat's decision is final... for now."
		if key, ok := b.results.Get(userID); ok {
			house, _ := domain.HouseByKey(key)
			reply = alreadySortedReply(house)
		}
		b.respondEphemeralText(s, i, reply)
		return
	}
	if err != nil {
		b.logger.Error("begin quiz failed", zap.String("user_id", userID), zap.Error(err))
		b.respondEphemeralText(s, i, "The Sorting Hat is confused. Please try again.")
		return
	}

	b.respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{questionEmbed(step)},
			Components: questionRows(step),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) handleAnswer(s *discordgo.Session, i *discordgo.InteractionCreate, userID, customID string) {
	optionIndex, err := strconv.Atoi(strings.TrimPrefix(customID, customIDAnswerPrefix))
	if err != nil || optionIndex < 0 {
		b.logger.Warn("malformed answer custom id", zap.String("custom_id", customID))
		b.respondEphemeralText(s, i, "That button puzzles even the Sorting Hat.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	adv, err := b.quiz.Answer(ctx, userID, optionIndex)
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		b.respondEphemeralText(s, i, "Session expired. Please start over with "+b.cfg.CommandPrefix+"sort")
		return
	case errors.Is(err, service.ErrInvalidOption):
		b.logger.Warn("answer index out of range",
			zap.String("user_id", userID), zap.Int("option", optionIndex))
		b.respondEphemeralText(s, i, "That button puzzles even the Sorting Hat.")
		return
	case err != nil:
		b.logger.Error("record answer failed", zap.String("user_id", userID), zap.Error(err))
		b.respondEphemeralText(s, i, "The Sorting Hat is confused. Please try again.")
		return
	}

	if adv.Next != nil {
		b.respond(s, i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Embeds:     []*discordgo.MessageEmbed{questionEmbed(*adv.Next)},
				Components: questionRows(*adv.Next),
			},
		})
		return
	}

	b.respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{thinkingEmbed()},
			Components: []discordgo.MessageComponent{},
		},
	})

	go b.reveal(s, i, userID, *adv.House)
}

// reveal waits the configured pause between the thinking acknowledgment and
// the private reveal, then announces publicly and reconciles roles. Role
// failure is an admin problem, never a quiz failure.
func (b *Bot) reveal(s *discordgo.Session, i *discordgo.InteractionCreate, userID string, house domain.House) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	select {
	case <-time.After(b.revealDelay):
	case <-ctx.Done():
		return
	}

	embeds := []*discordgo.MessageEmbed{privateRevealEmbed(house)}
	components := []discordgo.MessageComponent{}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	}); err != nil {
		b.logger.Warn("edit private reveal failed", zap.String("user_id", userID), zap.Error(err))
	}

	mention := "<@" + userID + ">"
	if _, err := s.ChannelMessageSendEmbed(i.ChannelID, publicAnnounceEmbed(mention, house)); err != nil {
		b.logger.Warn("send public announcement failed", zap.String("user_id", userID), zap.Error(err))
	}

	guild, ok := b.Guild(i.GuildID)
	if !ok {
		b.logger.Warn("guild not in state, skipping role assignment", zap.String("guild", i.GuildID))
		return
	}
	if err := b.roles.EnsureAssigned(ctx, guild, userID, house); err != nil {
		b.logger.Error("role assignment failed",
			zap.String("user_id", userID),
			zap.String("house", string(house.Key)),
			zap.Error(err))
	}
}

func (b *Bot) reply(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:   content,
		Reference: m.Reference(),
	})
	if err != nil {
		b.logger.Warn("send reply failed", zap.Error(err))
	}
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) {
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		b.logger.Warn("interaction respond failed", zap.Error(err))
	}
}

func (b *Bot) respondEphemeralText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	b.respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
