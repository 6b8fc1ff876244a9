package api

type StatusResponse struct {
	Version  string `json:"version"`
	MaxSteps int    `json:"max_steps"`
}

type RunRequest struct {
	Source string `json:"source"`
	// Input feeds ','; once consumed ',' reads end of input
	Input    string `json:"input"`
	MaxSteps int    `json:"max_steps"`
}

type RunResponse struct {
	Output      string          `json:"output"`
	DataStack   []int32         `json:"data_stack"`
	ReturnStack []int32         `json:"return_stack"`
	Memory      map[int32]int32 `json:"memory"`
	Steps       int             `json:"steps"`
	Error       string          `json:"error,omitempty"`
}

type ListRequest struct {
	Source string `json:"source"`
}

type ListResponse struct {
	Instructions []string       `json:"instructions"`
	Labels       map[string]int `json:"labels"`
}
