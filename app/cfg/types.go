package cfg

type Cfg struct {
	// Storage configuration
	DataDir string

	// Application configuration
	Port         string
	APIAccessKey string
	ChannelsFile string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
