package config

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

var CONFIG *Config

type Config struct {
	BotName                string
	DataDogClient          *statsd.Client
	Environment            string
	GalleryBaseURL         string
	NotifierWorkerInterval time.Duration
	Postgres               Postgres
	Redis                  Redis
	SupportChatID          string
	TelegramBotToken       string
	TwilioAccountSID       string
	TwilioAuthToken        string
	TwilioWhatsAppNumber   string
	ViberAuthToken         string
	WebhookBaseURL         string
}

type Redis struct {
	Host     string
	Port     string
	Password string
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (p Postgres) DSN() string {
	return "host=" + p.Host + " port=" + p.Port + " user=" + p.User +
		" password=" + p.Password + " dbname=" + p.Database + " sslmode=" + p.SSLMode
}
