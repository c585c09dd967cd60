package session

// Messages is the catalogue of texts the controller puts into the transcript
type Messages struct {
	Greeting      string `yaml:"greeting"`
	Analyzing     string `yaml:"analyzing"`
	AnalyzeFailed string `yaml:"analyze_failed"`
	ChatFailed    string `yaml:"chat_failed"`
	FindingsTitle string `yaml:"findings_title"`
}

func DefaultMessages() Messages {
	return Messages{
		Greeting:      "Hello! I am your AI-powered SEO assistant. 👋\nGive me your website URL and I will analyse it and send you a detailed report with recommendations. 🚀",
		Analyzing:     "🔍 Analysing **{url}** ...\n\n⏳ This can take a moment. Meanwhile, feel free to ask me any SEO question!",
		AnalyzeFailed: "❌ Sorry, the analysis could not be started. Please try again.",
		ChatFailed:    "❌ Sorry, your message could not be sent. Please try again.",
		FindingsTitle: "**Findings**",
	}
}

// merge fills empty fields of m from defaults
func (m Messages) merge(defaults Messages) Messages {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Messages{
		Greeting:      pick(m.Greeting, defaults.Greeting),
		Analyzing:     pick(m.Analyzing, defaults.Analyzing),
		AnalyzeFailed: pick(m.AnalyzeFailed, defaults.AnalyzeFailed),
		ChatFailed:    pick(m.ChatFailed, defaults.ChatFailed),
		FindingsTitle: pick(m.FindingsTitle, defaults.FindingsTitle),
	}
}
