package api

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/zackees/vids-db/app/model"
)

// RSSGenerator renders RSS 2.0 XML from a list of video records, one
// <channel> element per distinct channel name and one <item> per record.
type RSSGenerator struct{}

// NewRSSGenerator creates a new RSS generator
func NewRSSGenerator() *RSSGenerator {
	return &RSSGenerator{}
}

// Run generates the RSS document. Channel order follows first
// appearance in the input; items keep the input order within a channel.
func (g *RSSGenerator) Run(videos []model.Video) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n<rss version=\"2.0\">\n")

	var channelOrder []string
	byChannel := make(map[string][]model.Video)
	for _, vid := range videos {
		if _, seen := byChannel[vid.ChannelName]; !seen {
			channelOrder = append(channelOrder, vid.ChannelName)
		}
		byChannel[vid.ChannelName] = append(byChannel[vid.ChannelName], vid)
	}

	for _, channelName := range channelOrder {
		buf.WriteString("  <channel>\n")
		g.writeElement(&buf, "title", channelName, 4)
		for _, vid := range byChannel[channelName] {
			g.writeItem(&buf, vid)
		}
		buf.WriteString("  </channel>\n")
	}

	buf.WriteString("</rss>\n")
	return buf.String(), nil
}

// writeItem writes a single RSS item
func (g *RSSGenerator) writeItem(buf *bytes.Buffer, vid model.Video) {
	buf.WriteString("    <item>\n")

	g.writeElement(buf, "title", vid.Title, 6)
	g.writeElement(buf, "published", model.FormatTimestamp(vid.DatePublished), 6)
	g.writeElement(buf, "lastupdated", model.FormatTimestamp(vid.DateLastUpdated), 6)
	g.writeElement(buf, "url", vid.URL, 6)
	g.writeElement(buf, "channel_url", vid.ChannelURL, 6)
	g.writeElement(buf, "channel_name", vid.ChannelName, 6)
	g.writeElement(buf, "description", vid.Description, 6)
	g.writeElement(buf, "image", vid.ImgSrc, 6)
	g.writeElement(buf, "duration", strconv.FormatFloat(vid.Duration, 'f', -1, 64), 6)
	g.writeElement(buf, "views", strconv.FormatInt(vid.Views, 10), 6)
	g.writeElement(buf, "host", vid.Source, 6)
	g.writeElement(buf, "iframe", vid.IframeSrc, 6)

	buf.WriteString("    </item>\n")
}

// writeElement writes an indented XML element with escaped content
func (g *RSSGenerator) writeElement(buf *bytes.Buffer, name, value string, indent int) {
	buf.WriteString(fmt.Sprintf("%*s<%s>", indent, "", name))
	xml.EscapeText(buf, []byte(value))
	buf.WriteString(fmt.Sprintf("</%s>\n", name))
}
