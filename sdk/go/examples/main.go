package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"SongForge/sdk/go/songforge"
)

// Submits a preset job to a running server and prints the lyrics when done.
func main() {
	baseURL := os.Getenv("SONGFORGE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	client, err := songforge.NewClient(baseURL, nil)
	if err != nil {
		log.Fatalf("client: %v", err)
	}
	client.SetToken(os.Getenv("SONGFORGE_API_TOKEN"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := client.Summary(ctx)
	if err != nil {
		log.Fatalf("summary: %v", err)
	}
	fmt.Printf("plugins registered: %d, active: %v\n", summary.Total, summary.Active)

	job, err := client.SubmitJob(ctx, songforge.JobSubmission{Song: songforge.SongRequest{PresetID: "midnight-drive-synthwave"}})
	if err != nil {
		log.Fatalf("submit: %v", err)
	}
	job, err = client.WaitForJob(ctx, job.ID, 2*time.Second)
	if err != nil {
		log.Fatalf("wait: %v", err)
	}
	if job.Result == nil {
		log.Fatalf("job %s %s: %s", job.ID, job.Status, job.LastError)
	}
	fmt.Printf("%s\n\n%s\n", job.Result.Title, job.Result.Lyrics)
}
