package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/authgreet/authgreet/pkg/authclient"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Logs in against a running server and fires concurrent validate calls,
// reporting how many refresh exchanges the client needed. Run it with
// -wait past the access TTL to watch the calls share one refresh.
func main() {
	baseURL := flag.String("url", "http://localhost:3000", "server base URL")
	email := flag.String("email", "", "account email")
	userPassword := flag.String("password", "", "account password")
	calls := flag.Int("n", 5, "concurrent validate calls")
	wait := flag.Duration("wait", 0, "pause between login and the concurrent calls")
	origin := flag.String("origin", "", "also send a CORS preflight from this origin")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *email == "" || *userPassword == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if *origin != "" {
		preflight(*baseURL, *origin)
	}

	client, err := authclient.New(*baseURL,
		authclient.WithLogger(logger),
		authclient.WithSessionID("X-Session-ID", uuid.New().String()),
		authclient.WithOnUnauthenticated(func(err error) {
			logger.WithError(err).Warn("session lost, log in again")
		}),
	)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()
	if err := client.Login(ctx, *email, *userPassword); err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	if *wait > 0 {
		time.Sleep(*wait)
	}

	start := time.Now()
	var g errgroup.Group
	for i := 0; i < *calls; i++ {
		g.Go(func() error {
			return client.Validate(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Validate failed: %v", err)
	}

	me, err := client.Me(ctx)
	if err != nil {
		log.Fatalf("Me failed: %v", err)
	}
	fmt.Printf("user:      %s <%s>\n", me.Name, me.Email)
	fmt.Printf("calls:     %d in %s\n", *calls, time.Since(start).Round(time.Millisecond))
	fmt.Printf("refreshes: %d\n", client.RefreshCount())
}

func preflight(baseURL, origin string) {
	req, err := http.NewRequest(http.MethodOptions, baseURL+authclient.LoginPath, nil)
	if err != nil {
		log.Fatalf("Failed to build preflight: %v", err)
	}
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Preflight failed: %v", err)
	}
	resp.Body.Close()

	fmt.Println("preflight:", resp.StatusCode)
	for _, h := range []string{"Access-Control-Allow-Origin", "Access-Control-Allow-Credentials", "Access-Control-Allow-Methods", "Access-Control-Allow-Headers"} {
		fmt.Printf("  %s: %s\n", h, resp.Header.Get(h))
	}
}
