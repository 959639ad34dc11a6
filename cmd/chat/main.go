// Command chat is a terminal REPL against the contract engine API: type
// a question, get a grounded answer with its contract citations.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type queryRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type queryResponse struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer"`
	Error   string `json:"error"`
	Sources []struct {
		ContractNo string  `json:"contract_no"`
		Score      float32 `json:"relevance_score"`
	} `json:"sources"`
}

func main() {
	var (
		apiURL = flag.String("api", "http://localhost:8080", "contract engine API base URL")
		userID = flag.String("user", "", "owner scope for retrieval")
	)
	flag.Parse()

	client := &http.Client{Timeout: 2 * time.Minute}
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("contract chat - ask about your contracts (ctrl-d to quit)")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}

		resp, err := ask(client, *apiURL, question, *userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if !resp.Success {
			fmt.Fprintf(os.Stderr, "error: %s\n", resp.Error)
			continue
		}

		fmt.Println(resp.Answer)
		for _, s := range resp.Sources {
			fmt.Printf("  [%s] score %.2f\n", s.ContractNo, s.Score)
		}
	}
}

func ask(client *http.Client, apiURL, question, userID string) (*queryResponse, error) {
	body, err := json.Marshal(queryRequest{Question: question, UserID: userID})
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(apiURL+"/api/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
