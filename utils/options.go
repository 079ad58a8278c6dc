package utils

import "github.com/bwmarrin/discordgo"

// OptionMap indexes a command interaction's options by name.
func OptionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// IntOption returns the named integer option, or fallback when absent.
func IntOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string, fallback int) int {
	if opt, ok := opts[name]; ok {
		return int(opt.IntValue())
	}
	return fallback
}

// StringOption returns the named string option, or "" when absent.
func StringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

// BoolOption returns the named boolean option, or false when absent.
func BoolOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	if opt, ok := opts[name]; ok {
		return opt.BoolValue()
	}
	return false
}

// HasPermission reports whether the invoking member carries the permission.
// Interactions outside a guild carry no member and never pass.
func HasPermission(i *discordgo.InteractionCreate, permission int64) bool {
	return i.Member != nil && i.Member.Permissions&permission == permission
}
