// Package sentinel downloads Sentinel-1 and Sentinel-2 products from the
// Copernicus Data Space Ecosystem.
package sentinel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/safe-ro/safe-ro/internal/log"
	"github.com/safe-ro/safe-ro/internal/properties"
	"github.com/safe-ro/safe-ro/internal/utils"
)

const DefaultClientID = "cdse-public"

var (
	ErrMissingCredentials = errors.New("missing CDSE credentials")
	ErrNotAuthenticated   = errors.New("client is not authenticated")
	ErrNoProduct          = errors.New("no product found")
)

type Config struct {
	Username string
	Password string
	// ClientID/ClientSecret switch to the client credentials grant when no
	// username is set.
	ClientID     string
	ClientSecret string
	TokenURL     string
	CatalogURL   string
	MaxRetries   int
	RetryDelay   time.Duration
	Progress     bool
}

// ConfigFromProperties maps the process configuration to a client config.
func ConfigFromProperties(cfg properties.Config) Config {
	return Config{
		Username:   cfg.CDSEUsername,
		Password:   cfg.CDSEPassword,
		TokenURL:   cfg.CDSETokenURL,
		CatalogURL: cfg.CDSECatalogURL,
		MaxRetries: cfg.CDSEMaxRetries,
		Progress:   true,
	}
}

// Client is safe for concurrent use once authenticated. Downloads into the
// same directory are serialised.
type Client struct {
	cfg   Config
	http  *http.Client
	locks utils.KeyedMutex
}

func NewClient(cfg Config) *Client {
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = properties.DefaultTokenURL
	}
	if cfg.CatalogURL == "" {
		cfg.CatalogURL = properties.DefaultCatalogURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 20
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &Client{cfg: cfg}
}

// Authenticate requests a token. The resulting HTTP client refreshes it on
// its own.
func (c *Client) Authenticate(ctx context.Context) error {
	switch {
	case c.cfg.Username != "" && c.cfg.Password != "":
		conf := &oauth2.Config{
			ClientID: c.cfg.ClientID,
			Endpoint: oauth2.Endpoint{TokenURL: c.cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
		}
		token, err := conf.PasswordCredentialsToken(ctx, c.cfg.Username, c.cfg.Password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		c.http = conf.Client(context.Background(), token)
	case c.cfg.ClientSecret != "":
		conf := &clientcredentials.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			TokenURL:     c.cfg.TokenURL,
		}
		if _, err := conf.Token(ctx); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		c.http = conf.Client(context.Background())
	default:
		return ErrMissingCredentials
	}

	log.Infof("authenticated against %s", c.cfg.TokenURL)
	return nil
}

func (c *Client) client() (*http.Client, error) {
	if c.http == nil {
		return nil, ErrNotAuthenticated
	}
	return c.http, nil
}
