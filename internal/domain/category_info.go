package domain

import "fmt"

const (
	DefaultCategoryDescription = "A collection of Python utilities."
	DefaultCategoryIcon        = "puzzle-piece"
)

var categoryDescriptions = map[string]string{
	"automation":      "Tools for automating repetitive tasks and workflows.",
	"creative":        "Utilities for creative projects and content generation.",
	"data_processing": "Tools for processing, analyzing, and visualizing data.",
	"dev_tools":       "Utilities for software development and programming.",
	"education":       "Educational tools and learning aids.",
	"file_management": "Tools for managing, organizing, and manipulating files.",
	"finance":         "Financial calculators and tracking tools.",
	"gaming":          "Gaming-related utilities and tools.",
	"hardware_iot":    "Tools for hardware and IoT device interaction.",
	"multimedia":      "Utilities for working with audio, video, and images.",
	"networking":      "Tools for network monitoring, testing, and analysis.",
	"security":        "Security-related utilities and tools.",
	"system_tools":    "System monitoring and management utilities.",
	"utility":         "General-purpose utility tools.",
	"web_api_tools":   "Tools for working with web services and APIs.",
}

var categoryIcons = map[string]string{
	"automation":      "robot",
	"creative":        "paint-brush",
	"data_processing": "database",
	"dev_tools":       "code",
	"education":       "graduation-cap",
	"file_management": "folder",
	"finance":         "chart-line",
	"gaming":          "gamepad",
	"hardware_iot":    "microchip",
	"multimedia":      "photo-video",
	"networking":      "network-wired",
	"security":        "shield-alt",
	"system_tools":    "desktop",
	"utility":         "tools",
	"web_api_tools":   "globe",
}

// CategoryDescription looks up the fixed description for a category key.
func CategoryDescription(key string) string {
	if desc, ok := categoryDescriptions[key]; ok {
		return desc
	}
	return DefaultCategoryDescription
}

func CategoryIcon(key string) string {
	if icon, ok := categoryIcons[key]; ok {
		return icon
	}
	return DefaultCategoryIcon
}

// FormatSize renders a byte count with binary units.
func FormatSize(size int64) string {
	const unit = 1024
	switch {
	case size < unit:
		return fmt.Sprintf("%d B", size)
	case size < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(size)/unit)
	case size < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", float64(size)/(unit*unit))
	default:
		return fmt.Sprintf("%.1f GB", float64(size)/(unit*unit*unit))
	}
}
