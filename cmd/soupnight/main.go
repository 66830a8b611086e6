package main

import (
	"log"
	"strings"

	"github.com/soupnight/soupnight"
)

func main() {
	cfg := soupnight.SiteConfig{
		Name:      soupnight.EnvOr("SITE_NAME", ""),
		URL:       soupnight.EnvOr("SITE_URL", ""),
		Addr:      listenAddr(),
		UploadDir: soupnight.EnvOr("UPLOAD_DIR", ""),
		DataDir:   soupnight.EnvOr("DATA_DIR", ""),
		PublicDir: soupnight.EnvOr("PUBLIC_DIR", ""),

		AllowedYears: splitList(soupnight.EnvOr("ALLOWED_YEARS", "")),

		RecaptchaSecret: soupnight.EnvOr("RECAPTCHA_SECRET", ""),

		EmailAPIKey:     soupnight.EnvOr("EMAIL_API_KEY", ""),
		EmailFrom:       soupnight.EnvOr("EMAIL_FROM", ""),
		EmailRecipients: splitList(soupnight.EnvOr("EMAIL_RECIPIENTS", "")),

		AnalyticsEnabled:      strings.EqualFold(soupnight.EnvOr("ANALYTICS_ENABLED", ""), "true"),
		AnalyticsDatabasePath: soupnight.EnvOr("ANALYTICS_DB_PATH", ""),
	}

	app := soupnight.New(cfg)
	defer app.Close()
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

func listenAddr() string {
	if port := soupnight.EnvOr("PORT", ""); port != "" {
		return ":" + port
	}
	return ""
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return soupnight.FilterEmpty(strings.Split(v, ","))
}
