package scraper

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Selectors for the vBulletin thread layout.
const (
	lastPageSelector   = "div#pagination_top span.first_last a"
	paginationSelector = "div#pagination_top a[href]"
	postListSelector   = "ol#posts"
	ratingsXPath       = "//ol[@id='posts']//span[@class='rating_results']"
)

var (
	pageParam  = regexp.MustCompile(`page=(\d+)`)
	ratingNode = regexp.MustCompile(`rating_(\d+)`)
)

var (
	errNoPagination = errors.New("no pagination control or post list on page")
	errNoPosts      = errors.New("no rating nodes in post list")
)

// postSeed is the listing data of one post before it becomes a forum.Post.
type postSeed struct {
	ID      int
	Ratings map[string]int
}

// parsePageCount reads the thread's page count from the first page.
// The "last page" link is authoritative; without it the highest linked
// page wins, and a thread with no pagination at all has one page.
func parsePageCount(doc *goquery.Document) (int, error) {
	if href, ok := doc.Find(lastPageSelector).First().Attr("href"); ok {
		n, err := pageNumber(href)
		if err != nil {
			return 0, fmt.Errorf("last page link %q: %w", href, err)
		}
		return n, nil
	}

	highest := 0
	doc.Find(paginationSelector).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if n, err := pageNumber(href); err == nil && n > highest {
			highest = n
		}
	})
	if highest > 0 {
		return highest, nil
	}

	if doc.Find(postListSelector).Length() > 0 {
		return 1, nil
	}
	return 0, errNoPagination
}

func pageNumber(href string) (int, error) {
	m := pageParam.FindStringSubmatch(href)
	if m == nil {
		return 0, fmt.Errorf("no page parameter")
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("page %d out of range", n)
	}
	return n, nil
}

// parsePosts extracts every post's id and rating counts from a listing
// page, in document order. Any malformed entry fails the whole page.
func parsePosts(root *html.Node) ([]postSeed, error) {
	nodes, err := htmlquery.QueryAll(root, ratingsXPath)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errNoPosts
	}

	seeds := make([]postSeed, 0, len(nodes))
	for _, node := range nodes {
		seed, err := parseRatingNode(node)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

// parseRatingNode reads one <span class="rating_results" id="rating_N">
// whose child spans each hold an <img alt="Label"> and a <strong>count</strong>.
func parseRatingNode(node *html.Node) (postSeed, error) {
	idAttr := htmlquery.SelectAttr(node, "id")
	m := ratingNode.FindStringSubmatch(idAttr)
	if m == nil {
		return postSeed{}, fmt.Errorf("rating node id %q has no post id", idAttr)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return postSeed{}, fmt.Errorf("rating node id %q: %w", idAttr, err)
	}

	ratings := make(map[string]int)
	for _, entry := range htmlquery.Find(node, "./span") {
		img := htmlquery.FindOne(entry, "./img")
		strong := htmlquery.FindOne(entry, "./strong")
		if img == nil || strong == nil {
			return postSeed{}, fmt.Errorf("post %d: rating entry missing img or count", id)
		}

		label := htmlquery.SelectAttr(img, "alt")
		count, err := strconv.Atoi(strings.TrimSpace(htmlquery.InnerText(strong)))
		if err != nil {
			return postSeed{}, fmt.Errorf("post %d: rating %q count: %w", id, label, err)
		}
		if _, dup := ratings[label]; dup {
			return postSeed{}, fmt.Errorf("post %d: rating %q listed twice", id, label)
		}
		ratings[label] = count
	}

	return postSeed{ID: id, Ratings: ratings}, nil
}
