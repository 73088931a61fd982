package cfg

type Cfg struct {
	// Application configuration
	Port       string
	BaseUrl    string
	DBPath     string
	SourcesDir string

	// Aggregation configuration
	WorkerCount       int
	SchedulerInterval int
	FetchTimeout      int

	// Platform credentials
	YouTubeAPIKey      string
	TwitterBearerToken string

	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
