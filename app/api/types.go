package api

import (
	"time"

	"github.com/zackees/vids-db/app/config"
	"github.com/zackees/vids-db/app/model"
	"github.com/zackees/vids-db/app/videodb"
)

type DatabaseInterface interface {
	UpdateMany(videos []model.Video) error
	GetVideoList(start, end time.Time, channelName string, limit int) ([]model.Video, error)
	QueryVideoList(query string, limit int) ([]model.Video, error)
	GetChannelNames() ([]string, error)
	RemoveByChannelName(channelName string) error
	RebuildSearchIndex() (int, error)
}

var _ DatabaseInterface = (*videodb.Database)(nil)

type GeneratorInterface interface {
	Run(videos []model.Video) (string, error)
}

var _ GeneratorInterface = (*RSSGenerator)(nil)

type Handler struct {
	db        DatabaseInterface
	policy    *config.ChannelPolicy
	generator GeneratorInterface
}
