/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"strings"
)

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}

// renderBoardPage projects a correlator snapshot into the status page.
// Inferred words keep their trailing marker so they read differently from
// confirmed guesses.
func renderBoardPage(cfg *Config, snap Snapshot) string {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	b.WriteString(`<meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
	b.WriteString(`<meta http-equiv="refresh" content="5">`)
	b.WriteString(`<style>`)
	b.WriteString(`body{font-family:monospace;margin:2rem;}table{border-collapse:collapse;}`)
	b.WriteString(`td,th{border:1px solid #999;padding:.25rem .5rem;text-align:left;}`)
	b.WriteString(`.letters{font-size:1.5rem;letter-spacing:.5rem;}`)
	b.WriteString(`.inferred{color:#888;}`)
	b.WriteString(`</style>`)
	b.WriteString(fmt.Sprintf("<title>boardwatch: %s</title></head><body>", html.EscapeString(snap.Channel)))

	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(snap.Channel))
	fmt.Fprintf(&b, "<p>level %d | best today %d | all-time best %d | clears today %d</p>",
		snap.GameLevel, snap.DailyBest, snap.AllTimeBest, snap.DailyClears)
	b.WriteString(`<p><img src="qr.png" alt="room qr" width="160" height="160"></p>`)

	if snap.Level == nil {
		b.WriteString("<p>waiting for a level to start...</p></body></html>")
		return b.String()
	}

	fmt.Fprintf(&b, `<p class="letters">%s</p>`, html.EscapeString(strings.ToUpper(strings.Join(snap.Level.Letters, " "))))

	if snap.Level.DefiningWord != "" {
		fmt.Fprintf(&b, "<p>defining word: <strong>%s</strong></p>", html.EscapeString(snap.Level.DefiningWord))
	}
	if len(snap.Level.Hidden) > 0 {
		fmt.Fprintf(&b, "<p>hidden letters: %s</p>", html.EscapeString(strings.Join(snap.Level.Hidden, " ")))
	}
	if len(snap.Level.Fake) > 0 {
		fmt.Fprintf(&b, "<p>fake letters: %s</p>", html.EscapeString(strings.Join(snap.Level.Fake, " ")))
	}

	b.WriteString("<table><tr><th>#</th><th>word</th><th>found by</th></tr>")
	for _, slot := range snap.Level.Slots {
		word := strings.Join(slot.Letters, "")
		if slot.Word != "" {
			word = slot.Word
		}
		fmt.Fprintf(&b, "<tr><td>%d</td><td>%s</td><td>%s</td></tr>",
			slot.Index, html.EscapeString(word), html.EscapeString(slot.Contributor))
	}
	b.WriteString("</table>")

	if len(snap.Level.Words) > 0 {
		b.WriteString("<p>")
		for i, word := range snap.Level.Words {
			if i > 0 {
				b.WriteString(", ")
			}
			if strings.HasSuffix(word, "*") {
				fmt.Fprintf(&b, `<span class="inferred">%s</span>`, html.EscapeString(word))
			} else {
				b.WriteString(html.EscapeString(word))
			}
		}
		b.WriteString("</p>")
	}

	b.WriteString("</body></html>")

	return b.String()
}
