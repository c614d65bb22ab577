package bauplan

import "time"

// TableField describes a single column of a table schema.
type TableField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// TableWithMetadata is a table entry in the catalog, including its schema.
type TableWithMetadata struct {
	Name      string       `json:"name"`
	Namespace string       `json:"namespace,omitempty"`
	Kind      string       `json:"kind,omitempty"`
	Fields    []TableField `json:"fields,omitempty"`
	Records   *int64       `json:"records,omitempty"`
	Size      *int64       `json:"size,omitempty"`
}

// Branch is a mutable named pointer to the latest commit in a line of work.
// Names follow <user>.<name>, with "main" reserved for production.
type Branch struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// Tag is a friendly label pointing at a commit.
type Tag struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// Namespace groups tables under a common prefix within a branch or commit.
type Namespace struct {
	Name string `json:"name"`
}

// CommitAuthor identifies who authored a commit.
type CommitAuthor struct {
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Commit is an immutable snapshot of the lakehouse state.
type Commit struct {
	Ref          string       `json:"ref"`
	Message      string       `json:"message"`
	Author       CommitAuthor `json:"author"`
	AuthoredDate string       `json:"authored_date"`
	ParentRefs   []string     `json:"parent_refs,omitempty"`
}

// Job is a remote-tracked asynchronous execution of a pipeline.
type Job struct {
	ID                  string     `json:"id"`
	Kind                string     `json:"kind"`
	User                string     `json:"user"`
	HumanReadableStatus string     `json:"human_readable_status"`
	CreatedAt           *time.Time `json:"created_at,omitempty"`
	FinishedAt          *time.Time `json:"finished_at,omitempty"`
	Status              string     `json:"status"`
}

// JobLog is one log line emitted by a job.
type JobLog struct {
	Message string `json:"message"`
	Stream  string `json:"stream"`
}

// JobStatus values accepted as list_jobs filters.
const (
	JobStatusComplete = "COMPLETE"
	JobStatusFail     = "FAIL"
	JobStatusAbort    = "ABORT"
	JobStatusRunning  = "RUNNING"
)

// JobsFilter narrows a GetJobs listing. Zero values mean "no filter".
type JobsFilter struct {
	ID         string
	Status     string
	StartTime  *time.Time
	FinishTime *time.Time
}

// RunState is the synchronous outcome of a detached run submission.
type RunState struct {
	JobID     string `json:"job_id"`
	JobStatus string `json:"job_status"`
}

// ImportState is the synchronous outcome of a data import submission.
type ImportState struct {
	JobID     string `json:"job_id"`
	JobStatus string `json:"job_status"`
}

// TableCreatePlanState is the outcome of plan_table_creation and
// apply_table_creation_plan: a YAML schema plan plus a tracking job.
type TableCreatePlanState struct {
	JobID           string         `json:"job_id"`
	JobStatus       string         `json:"job_status"`
	CanAutoApply    bool           `json:"can_auto_apply"`
	FilesToBeImport []string       `json:"files_to_be_imported,omitempty"`
	Plan            map[string]any `json:"plan,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// TableCreationState is the outcome of the single-step create_table call.
type TableCreationState struct {
	Name      string       `json:"name"`
	Namespace string       `json:"namespace,omitempty"`
	Fields    []TableField `json:"fields,omitempty"`
}

// QueryResult holds rows returned by the query engine, already decoded
// into native values.
type QueryResult struct {
	ColumnNames []string         `json:"column_names"`
	ColumnTypes []string         `json:"column_types"`
	Rows        []map[string]any `json:"rows"`
}

// User is the authenticated principal behind the current credential.
type User struct {
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

// InfoState is the response of the info endpoint.
type InfoState struct {
	User User `json:"user"`
}

// RunOptions carries the inputs of a detached pipeline run.
type RunOptions struct {
	ProjectDir string
	Ref        string
	Namespace  string
	Parameters map[string]any
	DryRun     bool
	// ClientTimeout bounds the submission round-trip, in seconds.
	// Zero means the client default.
	ClientTimeout int
}

// ImportOptions carries the inputs of an import_data call.
type ImportOptions struct {
	Table           string
	SearchURI       string
	Namespace       string
	Branch          string
	ContinueOnError bool
	ClientTimeout   int
}

// TablePlanOptions carries the inputs of create_table and plan_table_creation.
type TablePlanOptions struct {
	Table         string
	SearchURI     string
	Branch        string
	Namespace     string
	PartitionedBy string
	Replace       bool
}
