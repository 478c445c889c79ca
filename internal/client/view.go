package client

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Render writes s as plain text.
func Render(w io.Writer, s State) error {
	var b strings.Builder

	b.WriteString("Data Dashboard")
	if s.Loading {
		b.WriteString("  [Refreshing...]")
	}
	b.WriteString("\n\n")

	if !s.Loaded {
		b.WriteString("Loading...\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	renderWeather(&b, s)
	b.WriteString("\n")
	renderCrypto(&b, s)
	b.WriteString("\n")
	renderNews(&b, s)

	_, err := io.WriteString(w, b.String())
	return err
}

func renderWeather(b *strings.Builder, s State) {
	b.WriteString("Weather\n")
	w, err := s.Snapshot.Weather.Get()
	if err != nil {
		fmt.Fprintf(b, "  %s\n", err)
		return
	}
	fmt.Fprintf(b, "  City:       %s\n", w.City)
	fmt.Fprintf(b, "  Temp:       %s°C\n", number(w.Temp))
	fmt.Fprintf(b, "  Humidity:   %s%%\n", number(w.Humidity))
	fmt.Fprintf(b, "  Conditions: %s\n", w.Description)
}

func renderCrypto(b *strings.Builder, s State) {
	b.WriteString("Crypto Prices\n")
	c, err := s.Snapshot.Crypto.Get()
	if err != nil {
		fmt.Fprintf(b, "  %s\n", err)
		return
	}
	fmt.Fprintf(b, "  Bitcoin:  $%.2f %s\n", c.Bitcoin, arrow(s.Trend.Bitcoin))
	fmt.Fprintf(b, "  Ethereum: $%.2f %s\n", c.Ethereum, arrow(s.Trend.Ethereum))
	if s.LastUpdated != "" {
		fmt.Fprintf(b, "  Last Updated: %s\n", s.LastUpdated)
	}
}

func renderNews(b *strings.Builder, s State) {
	b.WriteString("Latest News\n")
	items, err := s.Snapshot.News.Get()
	if err != nil {
		fmt.Fprintf(b, "  %s\n", err)
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n    %s\n    %s\n", it.Title, it.Source, it.URL)
	}
}

func arrow(t Trend) string {
	if t > 0 {
		return "↑"
	}
	return "↓"
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
