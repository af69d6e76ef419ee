package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// smokeCase is one brief sent to a running server and the outcome expected back
type smokeCase struct {
	name     string
	body     string
	status   int
	decision string // X-Intake-Decision, empty when no decision is expected
}

var cases = []smokeCase{
	{
		name:     "simple catalog brief",
		body:     `{"text":"20 product photos on white background for our Shopee store"}`,
		status:   http.StatusOK,
		decision: "AUTO_QUOTE",
	},
	{
		name:     "large batch",
		body:     `{"text":"We have 1200 product photos for the new catalog"}`,
		status:   http.StatusOK,
		decision: "MANUAL_REVIEW",
	},
	{
		name:     "emergency with jewelry",
		body:     `{"text":"Emergency: necklace photos needed, client waiting","urgency":"emergency"}`,
		status:   http.StatusOK,
		decision: "MANUAL_REVIEW",
	},
	{
		name:   "short brief",
		body:   `{"text":"hi there"}`,
		status: http.StatusOK,
	},
	{
		name:   "non-string text",
		body:   `{"text":42}`,
		status: http.StatusBadRequest,
	},
}

func main() {
	godotenv.Load()

	defaultURL := os.Getenv("BRIEF_SERVER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	baseURL := flag.String("url", defaultURL, "base URL of a running brief-assistant server")
	wait := flag.Duration("wait", 10*time.Second, "how long to wait for the server to become healthy")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	client := &http.Client{Timeout: 5 * time.Second}

	log.WithField("url", *baseURL).Info("Starting integration test...")
	if err := waitHealthy(client, *baseURL, *wait); err != nil {
		log.WithError(err).Fatal("Server never became healthy")
	}

	failed := 0
	for _, tc := range cases {
		entry := log.WithField("case", tc.name)

		status, decision, body, err := sendBrief(client, *baseURL, tc.body)
		switch {
		case err != nil:
			entry.WithError(err).Error("FAIL: request failed")
			failed++
		case status != tc.status:
			entry.Errorf("FAIL: status %d, want %d. Body: %s", status, tc.status, body)
			failed++
		case decision != tc.decision:
			entry.Errorf("FAIL: intake decision %q, want %q", decision, tc.decision)
			failed++
		default:
			entry.Info("PASS")
		}
	}

	if failed > 0 {
		log.Errorf("%d of %d cases failed", failed, len(cases))
		os.Exit(1)
	}
	log.Infof("All %d cases passed", len(cases))
}

func waitHealthy(client *http.Client, baseURL string, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			err = fmt.Errorf("health returned %d", resp.StatusCode)
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func sendBrief(client *http.Client, baseURL, body string) (int, string, string, error) {
	if !json.Valid([]byte(body)) {
		return 0, "", "", fmt.Errorf("case body is not valid JSON")
	}

	resp, err := client.Post(baseURL+"/api/analyze", "application/json", bytes.NewBufferString(body))
	if err != nil {
		return 0, "", "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", "", fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, resp.Header.Get("X-Intake-Decision"), string(respBody), nil
}
