package notify

import "strings"

func freedesktopCommands() []command {
	return []command{
		{
			name: "notify-send",
			args: func(m Message) []string {
				return []string{"--app-name", appName, "--urgency", m.Urgency.String(), m.Title, m.Body}
			},
		},
		{
			name: "zenity",
			args: func(m Message) []string {
				return []string{"--notification", "--text", m.Title + ": " + m.Body}
			},
		},
		{
			name: "kdialog",
			args: func(m Message) []string {
				return []string{"--passivepopup", m.Body, popupSeconds, "--title", m.Title}
			},
		},
	}
}

func darwinCommands() []command {
	return []command{
		{
			name: "osascript",
			args: func(m Message) []string {
				script := "display notification " + appleScriptString(m.Body) +
					" with title " + appleScriptString(m.Title)
				return []string{"-e", script}
			},
		},
	}
}

func windowsCommands() []command {
	return []command{
		{
			name: "powershell",
			args: func(m Message) []string {
				script := "New-BurntToastNotification -Text " +
					powerShellString(m.Title) + ", " + powerShellString(m.Body)
				return []string{"-NoProfile", "-NonInteractive", "-Command", script}
			},
		},
		{
			name: "powershell",
			args: func(m Message) []string {
				return []string{"-NoProfile", "-NonInteractive", "-Command", winRTToastScript(m)}
			},
		},
	}
}

// winRTToastScript shows a toast through the WinRT API available on Windows 10 and later.
func winRTToastScript(m Message) string {
	return strings.Join([]string{
		"[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null",
		"$t = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)",
		"$n = $t.GetElementsByTagName('text')",
		"$n.Item(0).AppendChild($t.CreateTextNode(" + powerShellString(m.Title) + ")) | Out-Null",
		"$n.Item(1).AppendChild($t.CreateTextNode(" + powerShellString(m.Body) + ")) | Out-Null",
		"[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier(" + powerShellString(appName) +
			").Show([Windows.UI.Notifications.ToastNotification]::new($t))",
	}, "; ")
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)

	return `"` + s + `"`
}

func powerShellString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
