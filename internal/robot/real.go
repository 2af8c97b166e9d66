package robot

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// RealController talks to the motion controller's HTTP API.
type RealController struct {
	client *resty.Client
}

// NewRealController creates a controller client for the given base URL,
// e.g. "http://192.168.1.10:6001".
func NewRealController(baseURL string) *RealController {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second)
	return &RealController{client: client}
}

type statusResponse struct {
	Status int `json:"status"`
}

type jobResponse struct {
	Job string `json:"job"`
}

// RunStatus queries the robot's program run status.
func (c *RealController) RunStatus(id int) (RunStatus, error) {
	var body statusResponse
	resp, err := c.client.R().
		SetResult(&body).
		Get(fmt.Sprintf("/robots/%d/status", id))
	if err != nil {
		return StatusStopped, fmt.Errorf("get status of robot %d: %w", id, err)
	}
	if resp.IsError() {
		return StatusStopped, fmt.Errorf("get status of robot %d: %s", id, resp.Status())
	}
	return RunStatus(body.Status), nil
}

// OpenJob queries the robot's currently open job name.
// A 404 means no job is open and is not treated as an error.
func (c *RealController) OpenJob(id int) (string, error) {
	var body jobResponse
	resp, err := c.client.R().
		SetResult(&body).
		Get(fmt.Sprintf("/robots/%d/job", id))
	if err != nil {
		return "", fmt.Errorf("get open job of robot %d: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", nil
	}
	if resp.IsError() {
		return "", fmt.Errorf("get open job of robot %d: %s", id, resp.Status())
	}
	return body.Job, nil
}

// PauseJob issues a pause command. The response is advisory only.
func (c *RealController) PauseJob(id int) error {
	resp, err := c.client.R().
		Post(fmt.Sprintf("/robots/%d/pause", id))
	if err != nil {
		return fmt.Errorf("pause robot %d: %w", id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("pause robot %d: %s", id, resp.Status())
	}
	return nil
}

// StartJob issues a start/resume command for the named job.
// The response is advisory only.
func (c *RealController) StartJob(job string) error {
	resp, err := c.client.R().
		SetBody(map[string]string{"job": job}).
		Post("/jobs/start")
	if err != nil {
		return fmt.Errorf("start job %q: %w", job, err)
	}
	if resp.IsError() {
		return fmt.Errorf("start job %q: %s", job, resp.Status())
	}
	return nil
}

// Close releases client resources.
func (c *RealController) Close() error {
	return nil
}
