package api

import (
	"fmt"
	"strconv"
	"time"

	"hnproxy/internal/models"

	"github.com/gorilla/feeds"
)

const hnItemURL = "https://news.ycombinator.com/item?id="

// renderRSS turns one page of stories into an RSS 2.0 document.
func renderRSS(result *models.PagedResult, now time.Time) (string, error) {
	feed := &feeds.Feed{
		Title:       "Hacker News: newest stories",
		Link:        &feeds.Link{Href: "https://news.ycombinator.com/newest"},
		Description: fmt.Sprintf("Page %d of %d, %d stories", result.CurrentPage, result.TotalPages(), result.TotalCount),
		Created:     now,
	}

	for _, story := range result.Items {
		item := &feeds.Item{
			Id:          strconv.Itoa(story.ID),
			Title:       story.Title,
			Link:        &feeds.Link{Href: story.URL},
			Description: fmt.Sprintf("%d points, discussion: %s%d", story.Score, hnItemURL, story.ID),
		}
		if story.By != "" {
			item.Author = &feeds.Author{Name: story.By}
		}
		if story.Time > 0 {
			item.Created = time.Unix(story.Time, 0).UTC()
		}
		feed.Items = append(feed.Items, item)
	}

	return feed.ToRss()
}
