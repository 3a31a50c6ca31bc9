// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package bgg

import (
	"strconv"
	"strings"

	"github.com/shelfplay/shelfplay/internal/models"
)

// collectionDoc is the XML document returned by the collection endpoint.
//
//	<items totalitems="2">
//	  <item objecttype="thing" objectid="13" subtype="boardgame">
//	    <name sortindex="1">Catan</name>
//	    <yearpublished>1995</yearpublished>
//	    <thumbnail>https://...</thumbnail>
//	    <image>https://...</image>
//	    <stats minplayers="3" maxplayers="4" playingtime="120">
//	      <rating value="N/A"><average value="7.09"/></rating>
//	    </stats>
//	  </item>
//	</items>
type collectionDoc struct {
	TotalItems int              `xml:"totalitems,attr"`
	Items      []collectionItem `xml:"item"`
}

type collectionItem struct {
	ObjectID      string           `xml:"objectid,attr"`
	Name          string           `xml:"name"`
	YearPublished string           `xml:"yearpublished"`
	Thumbnail     string           `xml:"thumbnail"`
	Image         string           `xml:"image"`
	Stats         *collectionStats `xml:"stats"`
}

type collectionStats struct {
	MinPlayers  string            `xml:"minplayers,attr"`
	MaxPlayers  string            `xml:"maxplayers,attr"`
	PlayingTime string            `xml:"playingtime,attr"`
	Rating      *collectionRating `xml:"rating"`
}

type collectionRating struct {
	Average *valueAttr `xml:"average"`
}

type valueAttr struct {
	Value string `xml:"value,attr"`
}

// errorDoc is the XML error document BGG returns with HTTP 200 for some
// failure modes, invalid usernames included.
//
//	<errors><error><message>Invalid username specified</message></error></errors>
type errorDoc struct {
	Errors []struct {
		Message string `xml:"message"`
	} `xml:"error"`
}

// thingDoc is the XML document returned by the thing endpoint. Unlike the
// collection endpoint, most values are carried in value attributes.
type thingDoc struct {
	Items []thingItem `xml:"item"`
}

type thingItem struct {
	ID            string      `xml:"id,attr"`
	Names         []thingName `xml:"name"`
	Description   string      `xml:"description"`
	YearPublished *valueAttr  `xml:"yearpublished"`
	Thumbnail     string      `xml:"thumbnail"`
	Image         string      `xml:"image"`
	MinPlayers    *valueAttr  `xml:"minplayers"`
	MaxPlayers    *valueAttr  `xml:"maxplayers"`
	PlayingTime   *valueAttr  `xml:"playingtime"`
	Statistics    *thingStats `xml:"statistics"`
}

type thingName struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type thingStats struct {
	Ratings struct {
		Average *valueAttr `xml:"average"`
	} `xml:"ratings"`
}

// CollectionResult holds the parsed outcome of one collection fetch.
type CollectionResult struct {
	Items []models.CollectionItem

	// Skipped counts entries dropped during parsing for missing required
	// fields (BGG ID or name).
	Skipped int
}

// GameDetails is the parsed outcome of one thing endpoint lookup.
type GameDetails struct {
	BGGID         int      `json:"bgg_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	YearPublished *int     `json:"year_published,omitempty"`
	ThumbnailURL  *string  `json:"thumbnail_url,omitempty"`
	ImageURL      *string  `json:"image_url,omitempty"`
	MinPlayers    *int     `json:"min_players,omitempty"`
	MaxPlayers    *int     `json:"max_players,omitempty"`
	PlayingTime   *int     `json:"playing_time,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
}

// parseOptionalInt converts a numeric string to *int. Empty strings and
// unparseable values yield nil. Zero yields nil as well: BGG emits "0" for
// player counts and playing time it does not know.
func parseOptionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return nil
	}
	return &n
}

// parseOptionalRating converts a rating string to *float64. The upstream
// sentinel "N/A", empty strings, zero, and unparseable values yield nil.
func parseOptionalRating(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "N/A") {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f == 0 {
		return nil
	}
	return &f
}

// optionalString returns nil for empty strings.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
