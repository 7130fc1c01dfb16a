package web

import (
	"fmt"
	"html/template"
	"strings"

	"shop-insights/internal/dashboard"
)

func parseTemplates() *template.Template {
	t := template.New("pages").Funcs(template.FuncMap{
		"sparkline":  sparkline,
		"barWidth":   barWidth,
		"deltaClass": deltaClass,
	})
	template.Must(t.New("base").Parse(getBaseTemplate()))
	template.Must(t.New("dashboard.html").Parse(getDashboardTemplate()))
	template.Must(t.New("chat.html").Parse(getChatTemplate()))
	return t
}

// sparkline turns a series into SVG polyline points inside a w x h box.
func sparkline(points []int, w, h int) string {
	if len(points) == 0 {
		return ""
	}
	lo, hi := points[0], points[0]
	for _, p := range points {
		lo = min(lo, p)
		hi = max(hi, p)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	step := 0.0
	if len(points) > 1 {
		step = float64(w) / float64(len(points)-1)
	}
	parts := make([]string, len(points))
	for i, p := range points {
		y := float64(h) - float64(p-lo)/float64(span)*float64(h)
		parts[i] = fmt.Sprintf("%.1f,%.1f", float64(i)*step, y)
	}
	return strings.Join(parts, " ")
}

// barWidth scales a bar to a percentage of the largest bar.
func barWidth(bars []dashboard.Bar, v int) int {
	top := 0
	for _, b := range bars {
		top = max(top, b.Value)
	}
	if top == 0 {
		return 0
	}
	return v * 100 / top
}

func deltaClass(delta string) string {
	switch {
	case strings.HasPrefix(delta, "+"):
		return "up"
	case strings.HasPrefix(delta, "-"), strings.Contains(strings.ToLower(delta), "down"):
		return "down"
	}
	return "flat"
}

func getBaseTemplate() string {
	return `{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.PageTitle}} - E-commerce Dashboard & Chatbot Insights</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #0f172a; color: #e2e8f0; display: flex; min-height: 100vh; }
        nav { width: 240px; background: #1e293b; padding: 1.5rem; border-right: 1px solid #334155; }
        nav h2 { font-size: 1rem; margin: 1rem 0 .5rem; color: #f8fafc; }
        nav a { display: block; color: #94a3b8; text-decoration: none; padding: .35rem 0; }
        nav a.active { color: #60a5fa; font-weight: 600; }
        nav label { display: block; font-size: .75rem; color: #94a3b8; margin-top: .5rem; }
        nav input { width: 100%; padding: .35rem; background: #0f172a; color: #e2e8f0; border: 1px solid #334155; border-radius: .25rem; }
        nav button, main button { margin-top: .75rem; padding: .4rem .8rem; background: #2563eb; color: #fff; border: 0; border-radius: .25rem; cursor: pointer; }
        main { flex: 1; padding: 2rem 2.5rem; max-width: 1400px; }
        h1 { font-size: 1.6rem; margin-bottom: 1.25rem; }
        h3 { font-size: 1.05rem; margin: 1.5rem 0 .75rem; }
        hr { border: 0; border-top: 1px solid #334155; margin: 1.5rem 0; }
        .kpis { display: grid; grid-template-columns: repeat(6, 1fr); gap: 1rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: .75rem; padding: 1rem 1.25rem; }
        .label { color: #94a3b8; font-size: .75rem; text-transform: uppercase; }
        .value { font-size: 1.5rem; font-weight: 700; margin-top: .35rem; }
        .delta { font-size: .8rem; margin-top: .25rem; }
        .delta.up { color: #4ade80; } .delta.down { color: #f87171; } .delta.flat { color: #94a3b8; }
        .cols { display: grid; grid-template-columns: 1fr 1fr; gap: 1.25rem; }
        table { width: 100%; border-collapse: collapse; font-size: .85rem; }
        th { text-align: left; color: #94a3b8; padding: .5rem; border-bottom: 1px solid #334155; }
        td { padding: .5rem; border-bottom: 1px solid #1e293b; }
        .bar { background: #60a5fa; height: 1rem; border-radius: .2rem; }
        .warning { background: #422006; border: 1px solid #a16207; color: #fde68a; padding: .6rem 1rem; border-radius: .5rem; margin-bottom: .5rem; }
        .success { background: #052e16; border: 1px solid #15803d; color: #bbf7d0; padding: .6rem 1rem; border-radius: .5rem; margin-top: .75rem; }
        .error { background: #450a0a; border: 1px solid #b91c1c; color: #fecaca; padding: .6rem 1rem; border-radius: .5rem; margin-bottom: .75rem; }
        .msg { padding: .75rem 1rem; border-radius: .5rem; margin-bottom: .6rem; white-space: pre-wrap; }
        .msg.user { background: #1e3a8a; } .msg.assistant { background: #1e293b; border: 1px solid #334155; }
        .msg .who { font-size: .7rem; color: #94a3b8; text-transform: uppercase; margin-bottom: .25rem; }
        #chat-form { display: flex; gap: .5rem; margin-top: 1rem; }
        #chat-form input { flex: 1; padding: .6rem; background: #1e293b; color: #e2e8f0; border: 1px solid #334155; border-radius: .35rem; }
        #spinner { display: none; color: #94a3b8; margin-top: .5rem; }
    </style>
</head>
<body>
    <nav>
        <h2>Navigation</h2>
        <a href="/" {{if eq .Page "dashboard"}}class="active"{{end}}>Dashboard</a>
        <a href="/chat" {{if eq .Page "chat"}}class="active"{{end}}>Chatbot Insights</a>
        {{if .NeedsAPIKey}}
        <form method="post" action="/chat/key">
            <label for="api_key">Enter your OpenAI API Key</label>
            <input id="api_key" name="api_key" type="password" autocomplete="off">
            <button type="submit">Save key</button>
        </form>
        {{end}}
        <h2>Date Range</h2>
        <form method="get" action="/">
            <label for="start">Start Date</label>
            <input id="start" name="start" type="date" value="{{.Range.StartString}}">
            <label for="end">End Date</label>
            <input id="end" name="end" type="date" value="{{.Range.EndString}}">
            <button type="submit">Apply</button>
        </form>
    </nav>
    <main>
{{end}}
{{define "foot"}}
    </main>
</body>
</html>{{end}}
{{define "table"}}
<table>
    <thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
    <tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>
</table>
{{end}}
{{define "series"}}
<p><strong>{{.Title}}</strong></p>
<svg viewBox="-2 -2 304 84" width="100%" height="90" preserveAspectRatio="none">
    <polyline fill="none" stroke="#60a5fa" stroke-width="2" points="{{sparkline .Points 300 80}}"/>
</svg>
{{end}}`
}

func getDashboardTemplate() string {
	return `{{template "head" .}}
{{with .Dashboard}}
<h1>{{.Title}}</h1>
<div class="kpis">
    {{range .KPIs}}
    <div class="card">
        <div class="label">{{.Label}}</div>
        <div class="value">{{.Value}}</div>
        <div class="delta {{deltaClass .Delta}}">{{.Delta}}</div>
    </div>
    {{end}}
</div>
<hr>
<h3>Sales &amp; Orders Overview</h3>
<div class="cols">
    <div class="card">{{template "series" .SalesTrend}}</div>
    <div class="card">{{template "series" .OrdersTrend}}</div>
</div>
<hr>
<h3>Top Products &amp; Categories</h3>
<div class="cols">
    <div class="card"><p><strong>{{.TopProducts.Title}}</strong></p>{{template "table" .TopProducts}}</div>
    <div class="card"><p><strong>{{.TopCategories.Title}}</strong></p>{{template "table" .TopCategories}}</div>
</div>
<hr>
<h3>Inventory &amp; Supplier Performance</h3>
<div class="cols">
    <div class="card"><p><strong>{{.LowStock.Title}}</strong></p>{{template "table" .LowStock}}</div>
    <div class="card"><p><strong>{{.Suppliers.Title}}</strong></p>{{template "table" .Suppliers}}</div>
</div>
<hr>
<h3>Customer Insights</h3>
<div class="cols">
    <div class="card">
        <p><strong>{{.Segments.Title}}</strong></p>
        <table>
        {{$bars := .Segments.Bars}}
        {{range $bars}}
            <tr><td style="width:25%">{{.Label}}</td><td><div class="bar" style="width: {{barWidth $bars .Value}}%"></div></td><td style="width:10%">{{.Value}}</td></tr>
        {{end}}
        </table>
    </div>
    <div class="card">{{template "series" .Frequency}}</div>
</div>
<hr>
<h3>Shipping &amp; Delivery</h3>
<div class="cols">
    <div class="card"><p><strong>{{.Shipments.Title}}</strong></p>{{template "table" .Shipments}}</div>
    <div class="card">
        <p><strong>Return Rate &amp; Delivery Times</strong></p>
        {{range .Delivery}}<p>{{.Label}}: <strong>{{.Value}}</strong></p>{{end}}
    </div>
</div>
<hr>
<h3>Alerts &amp; Notifications</h3>
{{range .Alerts}}<div class="warning">{{.}}</div>{{end}}
<hr>
<h3>Custom Reports</h3>
<p>{{.ReportsBlurb}}</p>
{{end}}
<form method="post" action="/reports">
    <button type="submit">Create New Report</button>
</form>
{{if .Notice}}<div class="success">{{.Notice}}</div>{{end}}
{{template "foot" .}}`
}

func getChatTemplate() string {
	return `{{template "head" .}}
<h1>Chatbot Insights</h1>
<p>Ask any question about our entire data model (Orders, Payments, Products, Inventory, Customers, Suppliers, Shipping, etc.) and receive detailed insights.</p>
<hr>
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
<div id="transcript">
{{range .Transcript}}
    <div class="msg {{.Role}}"><div class="who">{{.Role}}</div>{{.Content}}</div>
{{end}}
</div>
<form id="chat-form" method="post" action="/chat">
    <input name="message" placeholder="Ask your question about the data model:" autocomplete="off" required>
    <button type="submit">Send</button>
</form>
<form method="post" action="/chat/reset"><button type="submit">Reset conversation</button></form>
<div id="spinner">Generating response...</div>
<script>
(function () {
    var form = document.getElementById('chat-form');
    var box = document.getElementById('transcript');
    var spinner = document.getElementById('spinner');
    function add(role, text) {
        var d = document.createElement('div');
        d.className = 'msg ' + role;
        var w = document.createElement('div');
        w.className = 'who';
        w.textContent = role;
        d.appendChild(w);
        d.appendChild(document.createTextNode(text));
        box.appendChild(d);
    }
    form.addEventListener('submit', function (e) {
        e.preventDefault();
        var input = form.elements['message'];
        var text = input.value;
        if (!text.trim()) { return; }
        add('user', text);
        input.value = '';
        spinner.style.display = 'block';
        fetch('/api/chat', {
            method: 'POST',
            headers: {'Content-Type': 'application/json'},
            body: JSON.stringify({message: text})
        }).then(function (r) { return r.json(); }).then(function (data) {
            add('assistant', data.reply || data.error);
        }).catch(function (err) {
            add('assistant', String(err));
        }).finally(function () {
            spinner.style.display = 'none';
        });
    });
})();
</script>
{{template "foot" .}}`
}
