package config

// ChannelPolicy controls which channels the ingest path accepts. With a
// non-empty allow list, only listed channels are accepted; the block
// list removes channels regardless. An empty policy accepts everything.
type ChannelPolicy struct {
	Allow []string `yaml:"allow"`
	Block []string `yaml:"block"`
}
