package entity

type FileInfo struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
}

// DirListing holds the immediate children of a directory, sorted by name.
type DirListing struct {
	Path        string     `json:"path"`
	Files       []FileInfo `json:"files"`
	Directories []string   `json:"directories"`
}

type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Lines   int    `json:"lines"`
	Size    int64  `json:"size"`
}

type ExecResult struct {
	Command  string `json:"command"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

func (r ExecResult) Succeeded() bool {
	return r.ExitCode == 0
}
