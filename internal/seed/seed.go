// Package seed holds the built-in fix entries compiled into the binary.
// They form the lowest-precedence catalog tier: remote and local entries
// with the same slug shadow them.
package seed

import "github.com/calloway/fixport/internal/models"

var builtin = []models.FixEntry{
	{
		Slug:          "clear-teams-cache",
		Title:         "Teams Stuck on Loading Screen",
		Description:   "Microsoft Teams hangs on the loading spinner or shows stale messages after sign-in.",
		Category:      "O365",
		Severity:      "Medium",
		AccessLevel:   "User Safe",
		EstimatedTime: "5 minutes",
		Tags:          []string{"teams", "cache", "o365"},
		Steps: []models.Step{
			{Title: "Quit Teams", Type: "info", Content: "Right-click the Teams icon in the system tray and choose Quit. Confirm it is gone from Task Manager."},
			{Title: "Delete the cache", Type: "command", Content: "Press Win+R and open %appdata%\\Microsoft\\Teams, then delete the contents of the folder."},
			{Title: "Restart Teams", Type: "info", Content: "Launch Teams again and sign in. First start will be slower while the cache rebuilds."},
		},
	},
	{
		Slug:          "flush-dns-cache",
		Title:         "Websites Not Resolving After Network Change",
		Description:   "Pages fail to load with DNS errors after switching networks or VPN, while other devices work.",
		Category:      "Networking",
		Severity:      "Low",
		AccessLevel:   "User Safe",
		EstimatedTime: "2 minutes",
		Tags:          []string{"dns", "vpn", "networking"},
		Steps: []models.Step{
			{Title: "Open a terminal", Type: "info", Content: "Open Command Prompt on Windows or Terminal on macOS."},
			{Title: "Flush the resolver cache", Type: "command", Content: "Windows: ipconfig /flushdns\nmacOS: sudo dscacheutil -flushcache; sudo killall -HUP mDNSResponder"},
			{Title: "Retry the site", Type: "warning", Content: "If resolution still fails, the VPN client may be overriding DNS. Disconnect and reconnect before escalating."},
		},
	},
	{
		Slug:          "outlook-profile-rebuild",
		Title:         "Outlook Crashes on Startup",
		Description:   "Outlook exits immediately after launch or loops on the profile prompt.",
		Category:      "O365",
		Severity:      "High",
		AccessLevel:   "Admin Required",
		EstimatedTime: "20 minutes",
		Tags:          []string{"outlook", "profile", "o365"},
		Steps: []models.Step{
			{Title: "Back up PST files", Type: "warning", Content: "Copy any local .pst files out of %localappdata%\\Microsoft\\Outlook before touching the profile."},
			{Title: "Create a new profile", Type: "command", Content: "Run: outlook.exe /profiles and create a fresh profile, or use Control Panel > Mail > Show Profiles."},
			{Title: "Verify mail flow", Type: "info", Content: "Open Outlook with the new profile and confirm folders sync. Remove the broken profile once verified."},
		},
	},
}

// Entries returns deep copies of the built-in entries.
func Entries() []models.FixEntry {
	out := make([]models.FixEntry, len(builtin))
	for i, e := range builtin {
		out[i] = e.Clone()
	}
	return out
}
