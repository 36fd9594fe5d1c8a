package notifier

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/logger"
)

// MaxPostLength is the Twitter limit in characters.
const MaxPostLength = 280

// postInterval spaces consecutive posts.
const postInterval = 2 * time.Second

// Credentials holds the OAuth1 keys of the posting account.
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// CredentialsFromEnv reads the credentials from environment variables
// Required environment variables:
// - TWITTER_API_KEY
// - TWITTER_API_SECRET
// - TWITTER_ACCESS_TOKEN
// - TWITTER_ACCESS_SECRET
func CredentialsFromEnv() (Credentials, error) {
	c := Credentials{
		APIKey:       os.Getenv("TWITTER_API_KEY"),
		APISecret:    os.Getenv("TWITTER_API_SECRET"),
		AccessToken:  os.Getenv("TWITTER_ACCESS_TOKEN"),
		AccessSecret: os.Getenv("TWITTER_ACCESS_SECRET"),
	}
	if c.APIKey == "" || c.APISecret == "" || c.AccessToken == "" || c.AccessSecret == "" {
		return Credentials{}, fmt.Errorf("missing required Twitter credentials in environment variables")
	}
	return c, nil
}

// HTTPClient returns an OAuth1-signing client for the credentials.
func (c Credentials) HTTPClient() *http.Client {
	config := oauth1.NewConfig(c.APIKey, c.APISecret)
	token := oauth1.NewToken(c.AccessToken, c.AccessSecret)
	return config.Client(oauth1.NoContext, token)
}

// TwitterNotifier posts records to Twitter
type TwitterNotifier struct {
	client *twitter.Client
	sleep  func(time.Duration)
}

// NewTwitterNotifier creates a Twitter notifier using environment credentials
func NewTwitterNotifier() (*TwitterNotifier, error) {
	creds, err := CredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	return NewTwitterNotifierWithClient(creds.HTTPClient()), nil
}

// NewTwitterNotifierWithClient posts through an already authenticated client.
func NewTwitterNotifierWithClient(httpClient *http.Client) *TwitterNotifier {
	return &TwitterNotifier{client: twitter.NewClient(httpClient), sleep: time.Sleep}
}

// Notify posts one tweet per record and stops at the first failure
func (n *TwitterNotifier) Notify(records []event.Record) error {
	for i, r := range records {
		if _, _, err := n.client.Statuses.Update(FormatPost(r), nil); err != nil {
			return fmt.Errorf("failed to post tweet for %s: %w", r.URL, err)
		}
		logger.Debug("Posted tweet", logger.Fields{"source": r.Source, "url": r.URL})

		if i < len(records)-1 {
			n.sleep(postInterval)
		}
	}
	return nil
}

// FormatPost formats a record as a post of at most MaxPostLength characters.
func FormatPost(r event.Record) string {
	var b strings.Builder

	name := r.Name
	if name == "" {
		name = "New action"
	}
	fmt.Fprintf(&b, "📣 %s\n", name)
	if r.DateTime != "" {
		fmt.Fprintf(&b, "📅 %s\n", r.DateTime)
	}
	if r.Location != "" {
		fmt.Fprintf(&b, "📍 %s\n", r.Location)
	}
	if strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://") {
		fmt.Fprintf(&b, "\n🔗 %s\n", r.URL)
	}
	fmt.Fprintf(&b, "\n#%s #resist", hashtag(r.Source))

	return truncate(b.String(), MaxPostLength)
}

func hashtag(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncate cuts s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
