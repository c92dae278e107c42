package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two guards in a row with the same return can be merged with ||.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

func boundaries(m dsl.Matcher) {
	// Environment is read in one place.
	m.Match(`os.Getenv($*_)`, `os.LookupEnv($*_)`).
		Where(!m.File().PkgPath.Matches(`/internal/infra/config$`)).
		Report(`read environment through internal/infra/config`)

	// Outbound Metricool traffic goes through the client, which owns the
	// auth header and the timeout.
	m.Match(`http.Get($*_)`, `http.Post($*_)`, `http.DefaultClient`).
		Where(!m.File().PkgPath.Matches(`/internal/infra/metricool$`) && !m.File().Name.Matches(`_test\.go$`)).
		Report(`use metricool.Client for outbound requests`)

	// stdout carries the stdio transport.
	m.Match(`fmt.Println($*_)`, `fmt.Printf($*_)`, `log.Printf($*_)`, `log.Println($*_)`).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report(`write diagnostics through slog on stderr; stdout carries the MCP stdio transport`)
}
