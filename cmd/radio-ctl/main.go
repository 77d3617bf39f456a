// ABOUTME: Command client for a running radio bridge
// ABOUTME: Starts and stops sessions, sends control values, tunes, and shows status
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const usage = `usage: radio-ctl [-server URL] <command>

commands:
  start              start a session
  stop               stop the session
  set <key> <value>  send a control value to the radio pipeline
  tune <MHz>         retune the receiver
  status             show bridge status
`

func main() {
	server := flag.String("server", "http://127.0.0.1:8927", "Bridge HTTP address")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	c := &ctl{base: strings.TrimSuffix(*server, "/"), http: &http.Client{Timeout: 5 * time.Second}}
	if err := c.run(flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "radio-ctl: %v\n", err)
		os.Exit(1)
	}
}

type ctl struct {
	base string
	http *http.Client
}

// run executes one command and prints the bridge's JSON reply
func (c *ctl) run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	var (
		resp *http.Response
		err  error
	)
	switch cmd := args[0]; cmd {
	case "start":
		resp, err = c.http.PostForm(c.base+"/session/start", nil)
	case "stop":
		resp, err = c.http.PostForm(c.base+"/session/stop", nil)
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: set <key> <value>")
		}
		resp, err = c.http.PostForm(c.base+"/control", url.Values{"key": {args[1]}, "value": {args[2]}})
	case "tune":
		if len(args) != 2 {
			return fmt.Errorf("usage: tune <MHz>")
		}
		resp, err = c.http.PostForm(c.base+"/tune", url.Values{"mhz": {args[1]}})
	case "status":
		resp, err = c.http.Get(c.base + "/status")
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}

	_, err = out.Write(body)
	return err
}
