package domain

// Option is one selectable answer, weighted toward exactly one house.
type Option struct {
	Label string
	Emoji string
	House HouseKey
}

// Question is a single prompt with its ordered options.
type Question struct {
	Prompt  string
	Options []Option
}

// Questions is the static quiz. The model supports any N >= 1; this bank
// ships with four.
var Questions = []Question{
	{
		Prompt: "You discover a hidden path in the Forbidden Forest. What do you do?",
		Options: []Option{
			{Label: "Explore it immediately - adventure awaits!", Emoji: "⚔️", House: Gryffindor},
			{Label: "Mark it on a map and research it first", Emoji: "📚", House: Ravenclaw},
			{Label: "Tell your friends so you can explore together", Emoji: "🤝", House: Hufflepuff},
			{Label: "Keep it secret for strategic advantage", Emoji: "🎯", House: Slytherin},
		},
	},
	{
		Prompt: "A fellow student is struggling with their homework. What's your approach?",
		Options: []Option{
			{Label: "Offer to help them study together", Emoji: "💛", House: Hufflepuff},
			{Label: "Explain the concept in detail", Emoji: "🧠", House: Ravenclaw},
			{Label: "Help if they ask, but focus on your own work", Emoji: "📈", House: Slytherin},
			{Label: "Stand up for them if others mock their struggle", Emoji: "🛡️", House: Gryffindor},
		},
	},
	{
		Prompt: "You find a mysterious spellbook. What interests you most?",
		Options: []Option{
			{Label: "Spells that could protect others", Emoji: "✨", House: Gryffindor},
			{Label: "Understanding how the magic works", Emoji: "🔮", House: Ravenclaw},
			{Label: "Spells that bring people together", Emoji: "🌟", House: Hufflepuff},
			{Label: "Powerful spells that give you an edge", Emoji: "⚡", House: Slytherin},
		},
	},
	{
		Prompt: "What quality do you value most in yourself?",
		Options: []Option{
			{Label: "My courage to face challenges", Emoji: "🔥", House: Gryffindor},
			{Label: "My dedication and reliability", Emoji: "🌻", House: Hufflepuff},
			{Label: "My curiosity and knowledge", Emoji: "📖", House: Ravenclaw},
			{Label: "My ambition and resourcefulness", Emoji: "👑", House: Slytherin},
		},
	},
}
