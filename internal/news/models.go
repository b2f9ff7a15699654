// Package news pages through the surf news feed.
package news

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PostsPerPage is the page size requested upstream. A shorter page means the
// feed is exhausted.
const PostsPerPage = 8

// PostID accepts both numeric and string identifiers.
type PostID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *PostID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = PostID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("post id: %w", err)
	}
	*id = PostID(n.String())
	return nil
}

// Media is the post's lead image.
type Media struct {
	Type   string `json:"type"`
	Feed1x string `json:"feed1x"`
}

// Post is one news article.
type Post struct {
	ID        PostID `json:"id"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	Permalink string `json:"permalink"`
	Media     Media  `json:"media"`
}

// Feed is the loaded state of the feed.
type Feed struct {
	Posts         []Post `json:"posts"`
	Loading       bool   `json:"loading"`
	MoreAvailable bool   `json:"moreAvailable"`
	DemoMode      bool   `json:"demoMode"`
}

// DemoPosts is the offline feed.
var DemoPosts = []Post{
	{
		ID:        "demo1",
		Title:     "In Their Words",
		Subtitle:  "Four LGBTQ+ waveriders share their journeys in the surf world",
		Permalink: "https://www.surfline.com/surf-news/in-their-words/123941",
		Media: Media{
			Type:   "image",
			Feed1x: "https://d14fqx6aetz9ka.cloudfront.net/wp-content/uploads/2021/06/24141036/makoa-Heiko-Bothe3-copy.jpg",
		},
	},
	{
		ID:        "demo2",
		Title:     "\"Wake Up Fellas, It's 1991.\"",
		Subtitle:  "“Girls Can’t Surf”, may be the year’s best surf documentary.",
		Permalink: "https://www.surfline.com/surf-news/wake-fellas-1991/113406",
		Media: Media{
			Type:   "image",
			Feed1x: "https://d14fqx6aetz9ka.cloudfront.net/wp-content/uploads/2021/02/08193121/Hero-girls-cant-surf.jpg",
		},
	},
	{
		ID:        "demo3",
		Title:     "Keala Kennelly: \"Dream the Big, Crazy Dream\"",
		Subtitle:  "Newly minted Big Wave champ Keala Kennelly offers up inspiring words of wisdom",
		Permalink: "https://www.surfline.com/surf-news/keala-kennelly-dream-big-crazy-dream/48336",
		Media: Media{
			Type:   "image",
			Feed1x: "https://d14fqx6aetz9ka.cloudfront.net/wp-content/uploads/2019/03/31172733/BWT_Keala9922WSLawards19cestari-new-e1554078504278.jpg",
		},
	},
}
