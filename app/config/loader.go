package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zackees/vids-db/app/model"
)

// LoadChannelPolicy loads a channel policy from a YAML file. An empty
// path or a missing file yields the permissive default policy.
func LoadChannelPolicy(path string) (*ChannelPolicy, error) {
	if path == "" {
		return &ChannelPolicy{}, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ChannelPolicy{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read channel policy: %w", err)
	}

	var policy ChannelPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse channel policy: %w", err)
	}
	return &policy, nil
}

// Permits reports whether records from a channel should be accepted.
func (p *ChannelPolicy) Permits(channelName string) bool {
	for _, blocked := range p.Block {
		if blocked == channelName {
			return false
		}
	}
	if len(p.Allow) == 0 {
		return true
	}
	for _, allowed := range p.Allow {
		if allowed == channelName {
			return true
		}
	}
	return false
}

// Filter returns only the records whose channel the policy permits.
func (p *ChannelPolicy) Filter(videos []model.Video) []model.Video {
	if len(p.Allow) == 0 && len(p.Block) == 0 {
		return videos
	}
	out := make([]model.Video, 0, len(videos))
	for _, vid := range videos {
		if p.Permits(vid.ChannelName) {
			out = append(out, vid)
		}
	}
	return out
}
