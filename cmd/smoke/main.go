// Command smoke drives a running server through the full fact lifecycle:
// ingest, retrieval, supersession, retirement and episode removal.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var baseURL = "http://localhost:8000"

func main() {
	if v := os.Getenv("SMOKE_BASE_URL"); v != "" {
		baseURL = v
	}

	groupID := fmt.Sprintf("smoke-%d", time.Now().Unix())
	fmt.Printf("smoke run against %s, group %s\n", baseURL, groupID)

	step("ingest episode", func() (map[string]interface{}, error) {
		return request("POST", "/add_episode", map[string]interface{}{
			"group_id": groupID,
			"name":     "introduction",
			"content":  "Alice is a software engineer at Acme. She lives in San Francisco.",
		})
	})

	step("ingest messages", func() (map[string]interface{}, error) {
		return request("POST", "/messages", map[string]interface{}{
			"group_id": groupID,
			"messages": []map[string]string{
				{"role": "Alice", "role_type": "user", "content": "I just moved to Portland."},
			},
		})
	})

	var factUUID string
	step("search with scores", func() (map[string]interface{}, error) {
		body, err := request("POST", "/search_with_score", map[string]interface{}{
			"group_id":  groupID,
			"query":     "Where does Alice live?",
			"max_facts": 5,
		})
		if err != nil {
			return nil, err
		}
		facts, _ := body["facts"].([]interface{})
		if len(facts) > 0 {
			first, _ := facts[0].(map[string]interface{})
			factUUID, _ = first["uuid"].(string)
		}
		return body, nil
	})

	if factUUID != "" {
		step("supersede top fact", func() (map[string]interface{}, error) {
			return request("PUT", "/facts", map[string]interface{}{
				"uuid": factUUID,
				"fact": "Alice lives in Portland.",
			})
		})

		step("retire old fact", func() (map[string]interface{}, error) {
			return request("DELETE", "/facts", map[string]interface{}{
				"uuid": factUUID,
			})
		})
	} else {
		fmt.Println("SKIP: supersede and retire (no facts returned by search)")
	}

	var episodeUUID string
	step("list episodes", func() (map[string]interface{}, error) {
		body, err := request("GET", "/episodes/"+groupID, nil)
		if err != nil {
			return nil, err
		}
		episodes, _ := body["episodes"].([]interface{})
		if len(episodes) > 0 {
			first, _ := episodes[0].(map[string]interface{})
			episodeUUID, _ = first["uuid"].(string)
		}
		return body, nil
	})

	if episodeUUID != "" {
		step("remove episode", func() (map[string]interface{}, error) {
			return request("DELETE", "/episodes", map[string]interface{}{
				"uuid": episodeUUID,
			})
		})
	}

	fmt.Println("smoke run complete")
}

func step(name string, fn func() (map[string]interface{}, error)) {
	body, err := fn()
	if err != nil {
		fmt.Printf("FAILED: %s: %v\n", name, err)
		os.Exit(1)
	}
	pretty, _ := json.MarshalIndent(body, "  ", "  ")
	fmt.Printf("PASSED: %s\n  %s\n", name, pretty)
}

func request(method, path string, payload interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, data)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%s %s: unparseable response: %w", method, path, err)
	}
	return body, nil
}
