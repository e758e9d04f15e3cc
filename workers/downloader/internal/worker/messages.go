package worker

// Static texts returned by the informational request types.
const (
	startMessage = "Welcome to Video Downloader!\n\n" +
		"Send a URL and it will be downloaded for you.\n\n" +
		"Works best with:\n" +
		"- YouTube, TikTok, Instagram\n" +
		"- Twitter/X, Reddit\n" +
		"- Direct file links\n\n" +
		"Direct downloads are limited to about 80MB.\n\n" +
		"Use help for more info."

	helpMessage = "How to use:\n\n" +
		"1. Send any URL (http/https)\n" +
		"2. The service tries to download it\n" +
		"3. The video or file is delivered to you\n\n" +
		"Supported platforms:\n" +
		"YouTube, TikTok, Instagram, Twitter, Reddit and more\n\n" +
		"Tips:\n" +
		"- Use direct links for faster downloads\n" +
		"- Large files may take longer\n" +
		"- Some sites require public access"

	sitesMessage = "Supported platforms:\n\n" +
		"Video: YouTube, TikTok, Instagram, Twitter/X, Reddit, Facebook, Twitch\n" +
		"Audio: Spotify (with limitations), SoundCloud, YouTube Music\n" +
		"Other: direct file links, Vimeo, DailyMotion and 1000+ more sites\n\n" +
		"Some sites require public or unlisted content."

	aboutMessage = "Video Downloader\n\n" +
		"Fast and easy media downloads from 1000+ websites.\n\n" +
		"Powered by yt-dlp."

	dismissedMessage = "Message closed"
)

// staticMessages maps informational request types to their text.
var staticMessages = map[string]string{
	TypeStart: startMessage,
	TypeHelp:  helpMessage,
	TypeSites: sitesMessage,
	TypeAbout: aboutMessage,
}
