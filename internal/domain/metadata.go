package domain

// DocFormat identifies the docstring convention a tool follows.
type DocFormat string

const (
	DocFormatPySnip DocFormat = "pysnip"
	DocFormatGoogle DocFormat = "google"
	DocFormatNumPy  DocFormat = "numpy"
	DocFormatSimple DocFormat = "simple"
)

const NoDocumentationSummary = "No documentation available."

// KeySections holds the six normalized documentation slots.
type KeySections struct {
	Description string `json:"Description"`
	KeyFeatures string `json:"Key Features"`
	Usage       string `json:"Usage Instructions"`
	Examples    string `json:"Examples"`
	Arguments   string `json:"Command-Line Arguments"`
	OtherInfo   string `json:"Other Important Information"`
}

// Key section names in display order.
const (
	SectionDescription = "Description"
	SectionKeyFeatures = "Key Features"
	SectionUsage       = "Usage Instructions"
	SectionExamples    = "Examples"
	SectionArguments   = "Command-Line Arguments"
	SectionOtherInfo   = "Other Important Information"
)

// KeySectionNames lists the six slots in display order.
var KeySectionNames = []string{
	SectionDescription,
	SectionKeyFeatures,
	SectionUsage,
	SectionExamples,
	SectionArguments,
	SectionOtherInfo,
}

// Get returns the slot stored under a key section name.
func (k KeySections) Get(name string) string {
	switch name {
	case SectionDescription:
		return k.Description
	case SectionKeyFeatures:
		return k.KeyFeatures
	case SectionUsage:
		return k.Usage
	case SectionExamples:
		return k.Examples
	case SectionArguments:
		return k.Arguments
	case SectionOtherInfo:
		return k.OtherInfo
	default:
		return ""
	}
}

// Set fills a slot if it is still empty and reports whether name is a slot.
func (k *KeySections) Set(name, body string) bool {
	var slot *string
	switch name {
	case SectionDescription:
		slot = &k.Description
	case SectionKeyFeatures:
		slot = &k.KeyFeatures
	case SectionUsage:
		slot = &k.Usage
	case SectionExamples:
		slot = &k.Examples
	case SectionArguments:
		slot = &k.Arguments
	case SectionOtherInfo:
		slot = &k.OtherInfo
	default:
		return false
	}
	if *slot == "" {
		*slot = body
	}
	return true
}

// DocSection is one named block of a docstring.
type DocSection struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// DocInfo is the structured documentation recovered from a tool's source.
type DocInfo struct {
	Raw         string                `json:"raw"`
	Title       string                `json:"title"`
	Summary     string                `json:"summary"`
	Format      DocFormat             `json:"format"`
	Sections    []DocSection          `json:"sections,omitempty"`
	KeySections KeySections           `json:"keySections"`
	Examples    []string              `json:"examples,omitempty"`
	Parameters  []ParameterDescriptor `json:"parameters,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// Section returns the body of the first section with the given name.
func (d DocInfo) Section(name string) (string, bool) {
	for _, section := range d.Sections {
		if section.Name == name {
			return section.Body, true
		}
	}
	return "", false
}

// ParameterDescriptor describes one command-line flag a tool accepts.
type ParameterDescriptor struct {
	Name      string   `json:"name"`
	CleanName string   `json:"cleanName"`
	Aliases   []string `json:"aliases,omitempty"`
	Help      string   `json:"help"`
	Type      string   `json:"type"`
	Default   *string  `json:"default,omitempty"`
	Choices   []string `json:"choices,omitempty"`
	Required  bool     `json:"required"`
}
