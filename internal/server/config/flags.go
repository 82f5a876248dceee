package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   REST bind address (e.g., ":5000")
//	-d string   PostgreSQL DSN
//	-k string   JWT HMAC secret key
//	-at int     access token validity, minutes
//	-rt int     refresh token validity, minutes
//	-o string   comma-separated CORS origins
//	-g string   Gemini API key
//	-m string   Gemini model name
//	-l string   log level
//
// Duration flags are integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-at", "-rt", "-o", "-g", "-m", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "k", config.SecretKey, "JWT secret key")

	accessTokenValidityDuration := fs.Int("at", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("rt", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	origins := fs.String("o", "", "comma-separated CORS origins")
	fs.StringVar(&config.GeminiAPIKey, "g", config.GeminiAPIKey, "Gemini API key")
	fs.StringVar(&config.GeminiModel, "m", config.GeminiModel, "Gemini model")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	if *origins != "" {
		config.AllowedOrigins = splitList(*origins)
	}
}
