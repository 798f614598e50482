package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Upsert modes.
const (
	UpsertSequential = "sequential"
	UpsertConcurrent = "concurrent"
)

// Config is the full service configuration.
type Config struct {
	Server    Server
	Contacts  Contacts
	Directory Directory
	Sync      Sync
	Redis     Redis
	Kafka     Kafka
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	MediatorURN string
}

// Contacts configures the contact API.
type Contacts struct {
	BaseURL                string
	Slug                   string
	Token                  string
	GroupName              string
	Timeout                time.Duration
	ThrottleMargin         time.Duration
	DetailedOrchestrations bool
}

// Directory configures the provider directory.
type Directory struct {
	BaseURL          string
	Username         string
	Password         string
	QueryDocument    string
	ContactsDocument string
	Timeout          time.Duration
}

// Sync configures cycle behavior.
type Sync struct {
	UpsertMode        string
	UpsertConcurrency int
	UpsertSpacing     time.Duration
	LastSync          time.Time
	Reset             bool
	DeadLetterPath    string
}

// Redis configures the optional sync state store. Empty URL keeps state in
// memory.
type Redis struct {
	URL          string
	Key          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the optional outcome publisher. Empty Brokers disables it.
type Kafka struct {
	Brokers         string
	Topic           string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// DefaultUpsertSpacing keeps sequential upserts under ~2500 requests/hour.
var DefaultUpsertSpacing = 1440 * time.Millisecond

// LastSyncLayout is the format of CONTACTSYNC_LAST_SYNC.
const LastSyncLayout = "2006-01-02T15:04:05"

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:        getEnv("CONTACTSYNC_ADDR", ":3002"),
			Environment: getEnv("CONTACTSYNC_ENV", "development"),
			MediatorURN: getEnv("CONTACTSYNC_MEDIATOR_URN", "urn:mediator:contactsync"),
		},
		Contacts: Contacts{
			BaseURL:                getEnv("CONTACTSYNC_CONTACTS_URL", "http://localhost:8000/api/v2"),
			Slug:                   os.Getenv("CONTACTSYNC_CONTACTS_SLUG"),
			Token:                  os.Getenv("CONTACTSYNC_CONTACTS_TOKEN"),
			GroupName:              os.Getenv("CONTACTSYNC_CONTACTS_GROUP"),
			Timeout:                getDuration("CONTACTSYNC_CONTACTS_TIMEOUT", 30*time.Second),
			ThrottleMargin:         getDuration("CONTACTSYNC_THROTTLE_MARGIN", 5*time.Millisecond),
			DetailedOrchestrations: os.Getenv("CONTACTSYNC_DETAILED_ORCHESTRATIONS") == "true",
		},
		Directory: Directory{
			BaseURL:          getEnv("CONTACTSYNC_DIRECTORY_URL", "http://localhost:8984"),
			Username:         os.Getenv("CONTACTSYNC_DIRECTORY_USERNAME"),
			Password:         os.Getenv("CONTACTSYNC_DIRECTORY_PASSWORD"),
			QueryDocument:    getEnv("CONTACTSYNC_DIRECTORY_QUERY_DOCUMENT", "Providers"),
			ContactsDocument: getEnv("CONTACTSYNC_DIRECTORY_CONTACTS_DOCUMENT", "RapidProContacts"),
			Timeout:          getDuration("CONTACTSYNC_DIRECTORY_TIMEOUT", 60*time.Second),
		},
		Sync: Sync{
			UpsertMode:        strings.ToLower(getEnv("CONTACTSYNC_UPSERT_MODE", UpsertSequential)),
			UpsertConcurrency: getInt("CONTACTSYNC_UPSERT_CONCURRENCY", 0),
			UpsertSpacing:     getDuration("CONTACTSYNC_UPSERT_SPACING", DefaultUpsertSpacing),
			LastSync:          getTime("CONTACTSYNC_LAST_SYNC", time.Unix(0, 0).UTC()),
			Reset:             os.Getenv("CONTACTSYNC_RESET") == "true",
			DeadLetterPath:    getEnv("CONTACTSYNC_DEAD_LETTER_PATH", "dead-letter.jsonl"),
		},
		Redis: Redis{
			URL:          os.Getenv("CONTACTSYNC_REDIS_URL"),
			Key:          getEnv("CONTACTSYNC_REDIS_KEY", "contactsync:state"),
			PoolSize:     getInt("CONTACTSYNC_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("CONTACTSYNC_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("CONTACTSYNC_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("CONTACTSYNC_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("CONTACTSYNC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:         os.Getenv("CONTACTSYNC_KAFKA_BROKERS"),
			Topic:           getEnv("CONTACTSYNC_KAFKA_TOPIC", "contactsync.outcomes"),
			Acks:            getEnv("CONTACTSYNC_KAFKA_ACKS", "all"),
			Retries:         getInt("CONTACTSYNC_KAFKA_RETRIES", 3),
			DeliveryTimeout: getDuration("CONTACTSYNC_KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getTime(key string, fallback time.Time) time.Time {
	if v := os.Getenv(key); v != "" {
		if t, err := time.Parse(LastSyncLayout, v); err == nil {
			return t.UTC()
		}
	}
	return fallback
}
