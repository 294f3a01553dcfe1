// internal/workers/plant-care/guided-flow/models.go
package guidedflow

const (
	GreetingPrompt       = "Hello! I'm your AI assistant. I can help with your garden and find products in our store. What do you want to do today?"
	NextStepPrompt       = "Do you have any other questions? What do you want to do next?"
	HelpPrompt           = "How can I help you? Ask me about products in our store or anything about your garden."
	DiagnosisImagePrompt = "Please send a clear image of the plant."
	IdentifyImagePrompt  = "Please send me a picture of the plant you want to identify."
	LocationPrompt       = "Got the image! Now, please enter your location."
	WaterPrompt          = "How often do you water the plant?"
	SunlightPrompt       = "How much sunlight does the plant get?"
	DiagnosingNotice     = "Diagnosing your plant..."
	SolutionsPrompt      = "Would you like to get recommendations for solutions?"
	ProcessingNotice     = "Processing your image..."

	DiagnosisFailed      = "Failed to diagnose the plant. Please try again later."
	SolutionsFailed      = "Failed to get solutions. Please try again later."
	IdentificationFailed = "Failed to identify the plant. Please try again later."
	NoDiagnosisNotice    = "I don't have a diagnosis to recommend solutions for yet."
)

const (
	OptionIdentify           = "Identify plants"
	OptionDiagnose           = "Diagnose diseases"
	OptionChat               = "Chat with the assistant"
	OptionRecommendSolutions = "Recommend Solutions"
)

var (
	MainMenuOptions = []string{OptionIdentify, OptionDiagnose, OptionChat}

	// Positions are sent to the diagnosis service as the attribute value.
	WaterOptions = []string{
		"Every day",
		"Every 2 days",
		"2 times a week",
		"Every week",
		"Every 2 weeks",
		"Less often than every 2 weeks",
	}

	SunlightOptions = []string{
		"Indirect sunlight",
		"Full shade",
		"Partial sun",
		"Full sun",
	}
)
