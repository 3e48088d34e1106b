package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"bakalari-backend/lib/configutil"
	"bakalari-backend/lib/restyutil"
	"bakalari-backend/lib/scrapers/bakalari"
	"bakalari-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

type Config struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

var baseUrl *string

// the url the session was actually built against, set by createClient
var resolvedUrl string

func init() {
	baseUrl = rootCmd.PersistentFlags().String("url", "", "The portal base url. Overrides config.json5 and skips login.")
}

var rootCmd = &cobra.Command{
	Use:   "bakalari-cli",
	Short: "bakalari-cli fetches public timetables from a Bakaláři school portal.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// createClient builds a portal session from the --url flag or
// config.json5. Credentials in the config make it an authenticated
// session, otherwise the portal is accessed anonymously.
func createClient(ctx context.Context) *bakalari.Client {
	bakalari.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/bakalari"))

	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	url := *baseUrl
	var cfg Config
	if url == "" {
		var err error
		cfg, err = configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		url = cfg.BaseUrl
	}
	resolvedUrl = url

	var client *bakalari.Client
	var err error
	if cfg.Username == "" {
		client, err = bakalari.Anonymous(ctx, url)
	} else {
		client, err = bakalari.FromCredentials(ctx, bakalari.Options{
			BaseUrl:  url,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	if err != nil {
		serviceutil.Fatal("failed to initialize client", err)
	}

	err = client.Test(ctx)
	if err != nil {
		serviceutil.Fatal("portal connectivity check failed", err)
	}
	return client
}
