// Command doctalk is a terminal client for the doc-chat service. Feed it a
// document or website, then ask questions:
//
//	/file report.pdf      upload a context document
//	/site https://...     index a website
//	/audio                toggle spoken responses
//	quit                  exit
//
// Anything else is sent as a question.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	doctalk "github.com/doctalk/doctalk-go-sdk"
	"github.com/doctalk/doctalk-go-sdk/media"
)

func main() {
	cfg, err := doctalk.ConfigFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	flag.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "WebSocket base address")
	flag.StringVar(&cfg.Channel, "channel", cfg.Channel, "chat channel path")
	flag.StringVar(&cfg.Token, "token", cfg.Token, "credential token")
	flag.Parse()

	client, err := doctalk.Connect(context.Background(), cfg)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer client.Close()

	store := media.NewStore()
	defer store.ReleaseAll()

	session := doctalk.NewSession(client, store)
	session.SetPlayer(&printPlayer{store: store})
	session.OnUpdate(printNew())
	session.Bind(client.Router())

	wantAudio := false
	fmt.Println("Send a file (/file), a website (/site), then ask questions. 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "quit" || line == "exit":
			return
		case line == "/audio":
			wantAudio = !wantAudio
			fmt.Printf("*** spoken responses: %v ***\n", wantAudio)
		case strings.HasPrefix(line, "/file "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/file "))
			contents, err := os.ReadFile(path)
			if err != nil {
				log.Printf("read %s: %v", path, err)
				continue
			}
			if err := session.UploadFile(filepath.Base(path), contents); err != nil {
				log.Printf("upload: %v", err)
			}
		case strings.HasPrefix(line, "/site "):
			url := strings.TrimSpace(strings.TrimPrefix(line, "/site "))
			if err := session.SubmitWebsite(url); err != nil {
				log.Printf("website: %v", err)
			}
		default:
			if err := session.AskQuestion(line, wantAudio); err != nil {
				log.Printf("question: %v", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("read input: %v", err)
	}
}

// printNew prints entries the first time they appear in a snapshot.
func printNew() func([]doctalk.Entry) {
	seen := make(map[doctalk.EntryID]bool)
	return func(entries []doctalk.Entry) {
		for _, e := range entries {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			switch e.Kind {
			case doctalk.EntryQuestion:
				fmt.Printf("you: %s\n", e.Text)
			case doctalk.EntryAnswer, doctalk.EntryAudio:
				fmt.Printf("bot: %s\n", e.Text)
			case doctalk.EntryError:
				fmt.Printf("error: %s\n", e.Text)
			case doctalk.EntryLoading:
				fmt.Printf("... %s\n", e.Text)
			default:
				fmt.Printf("*** %s ***\n", e.Text)
			}
		}
	}
}

// printPlayer stands in for a real audio sink.
type printPlayer struct {
	store *media.Store
}

func (p *printPlayer) Play(ref media.Ref) {
	blob, err := p.store.Open(ref)
	if err != nil {
		log.Printf("play: %v", err)
		return
	}
	fmt.Printf("*** playing spoken answer (%d bytes) ***\n", len(blob))
}
