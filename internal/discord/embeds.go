package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"sorting-hat/internal/domain"
	"sorting-hat/internal/service"
)

const (
	customIDStart        = "start_sorting"
	customIDAnswerPrefix = "answer_"
	ceremonyColor        = 0x6B4423
)

func startButtonRow() discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: customIDStart,
				Label:    "Begin Sorting",
				Style:    discordgo.PrimaryButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "🎩"},
			},
		},
	}
}

func welcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: ceremonyColor,
		Title: "🧙‍♂️ Welcome to Hogwarts School of Witchcraft and Wizardry!",
		Description: "Greetings, young witch or wizard! You've just arrived at Hogwarts School of Witchcraft and Wizardry, a place where magic thrives and friendships are forged.\n\n" +
			"Before you begin your journey through the enchanted halls, step forward and meet the Sorting Hat — it shall decide whether your spirit belongs to Gryffindor, Ravenclaw, Hufflepuff, or Slytherin.\n\n" +
			"Type !sort (or click the Sorting Hat below 🧙‍♂️) to discover your true House and begin your magical adventure!\n\n" +
			"✨ Wands at the ready, and may your House bring you honor!",
		Footer: &discordgo.MessageEmbedFooter{Text: "The Sorting Hat awaits..."},
	}
}

func ceremonyEmbed(total int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: ceremonyColor,
		Title: "🎩 The Sorting Hat Ceremony",
		Description: "*The ancient hat stirs to life...*\n\n" +
			"\"Ah, another student to sort! Let me peer into your mind and see where you truly belong...\"\n\n" +
			fmt.Sprintf("I will ask you **%d questions**. Answer honestly, and I shall place you in the house where you will thrive!\n\n", total) +
			"**Click the button below to begin your sorting!**",
		Footer: &discordgo.MessageEmbedFooter{Text: "The Sorting Hat knows best..."},
	}
}

func questionEmbed(step service.Step) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       ceremonyColor,
		Title:       fmt.Sprintf("🎩 Question %d of %d", step.Index+1, step.Total),
		Description: fmt.Sprintf("*The Sorting Hat whispers...*\n\n**%s**", step.Question.Prompt),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Choose the answer that resonates with you..."},
	}
}

// questionRows lays the option buttons out two per row.
func questionRows(step service.Step) []discordgo.MessageComponent {
	buttons := make([]discordgo.MessageComponent, 0, len(step.Question.Options))
	for i, option := range step.Question.Options {
		buttons = append(buttons, discordgo.Button{
			CustomID: fmt.Sprintf("%s%d", customIDAnswerPrefix, i),
			Label:    option.Label,
			Style:    discordgo.SecondaryButton,
			Emoji:    &discordgo.ComponentEmoji{Name: option.Emoji},
		})
	}

	var rows []discordgo.MessageComponent
	for i := 0; i < len(buttons); i += 2 {
		end := i + 2
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons[i:end]})
	}
	return rows
}

func thinkingEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       ceremonyColor,
		Description: "*The Sorting Hat ponders deeply...*\n\n\"Hmm... interesting, very interesting...\"",
	}
}

func privateRevealEmbed(house domain.House) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       house.Color,
		Title:       "🎩 The Hat Has Decided!",
		Description: fmt.Sprintf("You belong in...\n\n# %s %s!", house.Emoji, strings.ToUpper(house.Name)),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "House Traits", Value: house.Traits},
			{Name: "About Your House", Value: house.Description},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Your house will be announced publicly!"},
	}
}

func publicAnnounceEmbed(mention string, house domain.House) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: house.Color,
		Title: "🎩 A NEW STUDENT HAS BEEN SORTED!",
		Description: fmt.Sprintf("The Sorting Hat has spoken!\n\n%s has been sorted into...\n\n# %s %s! %s",
			mention, house.Emoji, strings.ToUpper(house.Name), house.Emoji),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "House Traits", Value: house.Traits, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Welcome to %s!", house.Name)},
	}
}

func alreadySortedReply(house domain.House) string {
	return fmt.Sprintf("You have already been sorted into **%s %s**! The Sorting Hat's decision is final... for now.",
		house.Emoji, house.Name)
}
