package constants

// Storage constants
const (
	// DefaultDataPath is where the entity document lives unless configured
	DefaultDataPath = "data/user_data.json"

	// DataFileMode is the permission of the saved entity document
	DataFileMode = 0o644

	// DataDirMode is the permission of directories created for the data file
	DataDirMode = 0o755
)

// Query constants
const (
	// TopCentralNodes is how many nodes the statistics centrality ranking returns
	TopCentralNodes = 5

	// DefaultSearchLimit is how many text-search hits are returned unless asked
	DefaultSearchLimit = 5

	// DefaultDueSoonDays is the look-ahead window for tasks due soon
	DefaultDueSoonDays = 3
)

// Entity defaults
const (
	// MaxDerivedTitleLength caps titles taken from the first line of a note
	MaxDerivedTitleLength = 50

	// DerivedTitleSuffix is appended when a derived title was cut
	DerivedTitleSuffix = "..."

	// UntitledNote is used when a note has no usable first line
	UntitledNote = "Untitled Note"

	// UntitledTask is used when a task title cannot be generated
	UntitledTask = "Untitled Task"
)

// Task statuses
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCanceled   = "canceled"
)

// Task priorities
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// Language-model constants
const (
	// LLMMaxRetries is the number of attempts per language-model request
	LLMMaxRetries = 3

	// LLMMaxTags caps how many tags extraction keeps
	LLMMaxTags = 5

	// LLMSummaryMaxTokens bounds summary length
	LLMSummaryMaxTokens = 256
)
