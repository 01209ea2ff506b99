package ui

import (
	"fmt"
	"html/template"
	"io"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cast"

	"github.com/me/partnerportal/pkg/model"
)

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04")
	},
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02")
	},
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return humanize.Time(t)
	},
	"money": func(amount float64, currency string) string {
		return strings.TrimSpace(humanize.CommafWithDigits(amount, 2) + " " + currency)
	},
	"str": func(v any) string {
		return cast.ToString(v)
	},
	"isBool": func(t model.SubstepType) bool {
		return t == model.SubstepBoolean
	},
	"percentColor": func(p int) string {
		switch {
		case p >= 100:
			return "bg-green-500"
		case p >= 50:
			return "bg-blue-500"
		case p > 0:
			return "bg-yellow-400"
		default:
			return "bg-gray-300"
		}
	},
	"completedByColor": func(c model.CompletedBy) string {
		if c == model.CompletedByExternalSystem {
			return "bg-purple-100 text-purple-800"
		}
		return "bg-indigo-100 text-indigo-800"
	},
	"add": func(a, b int) int {
		return a + b
	},
}

// renderTemplate renders a template with the given data, resolving message
// keys through tr.
func renderTemplate(w io.Writer, name string, data map[string]any, tr *Translator) error {
	// Get the template content.
	content, ok := templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}

	// Get the layout template.
	layout, ok := templates["layout"]
	if !ok {
		return fmt.Errorf("layout template not found")
	}

	funcs := maps.Clone(templateFuncs)
	funcs["t"] = tr.T

	// Parse templates.
	tmpl, err := template.New("layout").Funcs(funcs).Parse(layout)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}

	_, err = tmpl.New("content").Parse(content)
	if err != nil {
		return fmt.Errorf("parse content: %w", err)
	}

	// Add shared components.
	for compName, compContent := range templates {
		if strings.HasPrefix(compName, "components/") {
			_, err = tmpl.New(filepath.Base(compName)).Parse(compContent)
			if err != nil {
				return fmt.Errorf("parse component %s: %w", compName, err)
			}
		}
	}

	return tmpl.Execute(w, data)
}

// templates holds all template content.
var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <script src="https://cdn.tailwindcss.com"></script>
    <style>
        .htmx-indicator { display: none; }
        .htmx-request .htmx-indicator { display: inline-block; }
        .htmx-request.htmx-indicator { display: inline-block; }
    </style>
</head>
<body class="bg-gray-50 min-h-screen">
    {{if .Session}}
    <nav class="bg-white shadow-sm border-b">
        <div class="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8">
            <div class="flex justify-between h-16">
                <div class="flex">
                    <a href="/" class="flex items-center px-2 py-2 text-xl font-bold text-indigo-600">
                        {{t "ui.app_name"}}
                    </a>
                    <div class="hidden sm:ml-6 sm:flex sm:space-x-8">
                        <a href="/" class="border-transparent text-gray-500 hover:border-gray-300 hover:text-gray-700 inline-flex items-center px-1 pt-1 border-b-2 text-sm font-medium">
                            {{t "ui.nav.dashboard"}}
                        </a>
                    </div>
                </div>
                <div class="flex items-center">
                    <span class="text-sm text-gray-500 mr-4">{{.Session.Email}}{{if .Session.CompanyName}} · {{.Session.CompanyName}}{{end}}</span>
                    <a href="/logout" class="text-sm text-gray-500 hover:text-gray-700">{{t "ui.nav.logout"}}</a>
                </div>
            </div>
        </div>
    </nav>
    {{end}}

    <main class="max-w-7xl mx-auto py-6 sm:px-6 lg:px-8">
        {{template "content" .}}
    </main>
</body>
</html>`,

	"components/alert": `{{define "alert"}}{{if .}}
<div class="rounded-md bg-red-50 p-4 mb-4">
    <div class="text-sm text-red-700">{{t .}}</div>
</div>
{{end}}{{end}}`,

	"components/progress_bar": `{{define "progress_bar"}}
<div class="w-full bg-gray-200 rounded-full h-2">
    <div class="{{percentColor .}} h-2 rounded-full" style="width: {{.}}%"></div>
</div>
{{end}}`,

	"login": `{{define "content"}}
<div class="min-h-screen flex items-center justify-center bg-gray-50 py-12 px-4 sm:px-6 lg:px-8">
    <div class="max-w-md w-full space-y-8">
        <div>
            <h2 class="mt-6 text-center text-3xl font-extrabold text-gray-900">{{t "ui.app_name"}}</h2>
            <p class="mt-2 text-center text-sm text-gray-600">{{t "ui.login.hint"}}</p>
        </div>
        {{template "alert" .Error}}
        <form class="mt-8 space-y-6" action="/login" method="POST">
            <div>
                <label for="email" class="sr-only">{{t "ui.login.email"}}</label>
                <input id="email" name="email" type="email" required autocomplete="email" value="{{.Email}}"
                       class="appearance-none rounded-md relative block w-full px-3 py-2 border border-gray-300 placeholder-gray-500 text-gray-900 focus:outline-none focus:ring-indigo-500 focus:border-indigo-500 sm:text-sm"
                       placeholder="{{t "ui.login.email"}}">
            </div>
            <button type="submit"
                    class="group relative w-full flex justify-center py-2 px-4 border border-transparent text-sm font-medium rounded-md text-white bg-indigo-600 hover:bg-indigo-700">
                {{t "ui.login.send"}}
            </button>
        </form>
    </div>
</div>
{{end}}`,

	"verify": `{{define "content"}}
<div class="min-h-screen flex items-center justify-center bg-gray-50 py-12 px-4 sm:px-6 lg:px-8">
    <div class="max-w-md w-full space-y-8">
        <div>
            <h2 class="mt-6 text-center text-3xl font-extrabold text-gray-900">{{t "ui.verify.title"}}</h2>
            <p class="mt-2 text-center text-sm text-gray-600">{{t "ui.verify.hint" .Email}}</p>
        </div>
        {{template "alert" .Error}}
        <form class="mt-8 space-y-6" action="/login/verify" method="POST">
            <input type="hidden" name="email" value="{{.Email}}">
            <div>
                <label for="code" class="sr-only">{{t "ui.verify.code"}}</label>
                <input id="code" name="code" type="text" inputmode="numeric" autocomplete="one-time-code" required
                       class="appearance-none rounded-md relative block w-full px-3 py-2 border border-gray-300 placeholder-gray-500 text-gray-900 tracking-widest focus:outline-none focus:ring-indigo-500 focus:border-indigo-500 sm:text-sm"
                       placeholder="{{t "ui.verify.code"}}">
            </div>
            <button type="submit"
                    class="group relative w-full flex justify-center py-2 px-4 border border-transparent text-sm font-medium rounded-md text-white bg-indigo-600 hover:bg-indigo-700">
                {{t "ui.verify.submit"}}
            </button>
        </form>
        <p class="text-center text-sm"><a href="/login" class="text-indigo-600 hover:text-indigo-500">{{t "ui.verify.restart"}}</a></p>
    </div>
</div>
{{end}}`,

	"dashboard": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <div class="mb-8">
        <h1 class="text-2xl font-semibold text-gray-900">{{if .Session.IsAdmin}}{{t "ui.dashboard.title"}}{{else}}{{t "ui.dashboard.pick"}}{{end}}</h1>
    </div>
    {{if .Onboardings}}
    <div class="bg-white shadow overflow-hidden sm:rounded-lg">
        <table class="min-w-full divide-y divide-gray-200">
            <thead class="bg-gray-50">
                <tr>
                    <th class="px-6 py-3 text-left text-xs font-medium text-gray-500 uppercase">{{t "ui.col.company"}}</th>
                    <th class="px-6 py-3 text-left text-xs font-medium text-gray-500 uppercase">{{t "ui.col.client_id"}}</th>
                    <th class="px-6 py-3 text-left text-xs font-medium text-gray-500 uppercase">{{t "ui.col.manufacturer"}}</th>
                    <th class="px-6 py-3 text-left text-xs font-medium text-gray-500 uppercase">{{t "ui.col.progress"}}</th>
                    <th class="px-6 py-3 text-left text-xs font-medium text-gray-500 uppercase">{{t "ui.col.updated"}}</th>
                </tr>
            </thead>
            <tbody class="bg-white divide-y divide-gray-200">
                {{range .Onboardings}}
                <tr class="hover:bg-gray-50">
                    <td class="px-6 py-4 text-sm font-medium text-indigo-600">
                        <a href="/onboardings/{{.Onboarding.ClientID}}">{{.Onboarding.CompanyName}}</a>
                    </td>
                    <td class="px-6 py-4 text-sm text-gray-500">{{.Onboarding.ClientID}}</td>
                    <td class="px-6 py-4 text-sm text-gray-500">{{.Manufacturer.Label}}</td>
                    <td class="px-6 py-4 text-sm text-gray-500 w-48">
                        {{template "progress_bar" .OverallPercent}}
                        <span class="text-xs">{{.OverallPercent}}%</span>
                    </td>
                    <td class="px-6 py-4 text-sm text-gray-500">{{ago .Onboarding.UpdatedAt}}</td>
                </tr>
                {{end}}
            </tbody>
        </table>
    </div>
    {{else}}
    <p class="text-gray-500">{{t "ui.dashboard.empty"}}</p>
    {{end}}
</div>
{{end}}`,

	"onboarding": `{{define "content"}}
{{$clientID := .Detail.Onboarding.ClientID}}
<div class="px-4 py-6 sm:px-0">
    <div class="mb-6 flex justify-between items-start">
        <div>
            <h1 class="text-2xl font-semibold text-gray-900">{{.Detail.Onboarding.CompanyName}}</h1>
            <p class="mt-1 text-sm text-gray-500">{{$clientID}} · {{.Detail.Progress.Manufacturer.Label}}</p>
        </div>
        <div class="flex space-x-4 text-sm">
            <a href="/onboardings/{{$clientID}}/notes" class="text-indigo-600 hover:text-indigo-500">{{t "ui.detail.notes"}}</a>
            <a href="/onboardings/{{$clientID}}/ion" class="text-indigo-600 hover:text-indigo-500">{{t "ui.detail.ion"}}</a>
        </div>
    </div>

    {{template "alert" .Error}}

    <div class="bg-white shadow rounded-lg p-6 mb-6">
        <div class="flex justify-between text-sm font-medium text-gray-700 mb-2">
            <span>{{t "ui.detail.overall"}}</span>
            <span>{{.Detail.Progress.OverallPercent}}%</span>
        </div>
        {{template "progress_bar" .Detail.Progress.OverallPercent}}
    </div>

    <div class="grid grid-cols-1 lg:grid-cols-3 gap-6">
        <div class="lg:col-span-2 space-y-6">
            {{range .Detail.Progress.Steps}}
            {{$locked := .Locked}}
            <section class="bg-white shadow rounded-lg p-6" id="{{.Key}}">
                <div class="flex justify-between items-center mb-2">
                    <h2 class="text-lg font-medium text-gray-900">{{t .LabelKey}}</h2>
                    <span class="text-sm text-gray-500">{{.Completed}}/{{.Total}} · {{.Percent}}%</span>
                </div>
                {{template "progress_bar" .Percent}}
                {{if .Locked}}
                <div class="mt-4 rounded-md bg-yellow-50 p-3 text-sm text-yellow-800">{{t "ui.detail.locked"}}</div>
                {{end}}
                <ul class="mt-4 divide-y divide-gray-100">
                    {{range .Substeps}}
                    {{$blocked := or $locked .Disabled}}
                    <li class="py-4{{if $blocked}} opacity-60{{end}}">
                        <div class="flex justify-between items-center">
                            <div class="font-medium text-gray-900">
                                {{if .Completed}}<span class="text-green-600">&#10003;</span>{{end}}
                                {{t .LabelKey}}
                            </div>
                            <div class="flex items-center space-x-2">
                                {{if .CompletedBy}}<span class="px-2 py-0.5 rounded text-xs {{completedByColor .CompletedBy}}">{{t (printf "ui.completed_by.%s" .CompletedBy)}}</span>{{end}}
                                {{if .Completed}}
                                <span class="text-xs text-green-700">{{t "ui.state.completed"}}</span>
                                {{else if .Disabled}}
                                <span class="text-xs text-gray-500">{{t "ui.state.disabled"}}</span>
                                {{else}}
                                <span class="text-xs text-gray-500">{{t "ui.state.open"}}</span>
                                {{end}}
                            </div>
                        </div>
                        <p class="mt-1 text-sm text-gray-500">{{t .InstructionsKey}}</p>
                        <div class="mt-2 space-y-2">
                            {{range .Fields}}
                            <form method="POST" action="/onboardings/{{$clientID}}/fields" class="flex items-center space-x-2">
                                <input type="hidden" name="field" value="{{.FieldKey}}">
                                {{if isBool .Type}}
                                <span class="text-sm text-gray-700 flex-1">{{t .LabelKey}}</span>
                                {{if .Completed}}
                                <input type="hidden" name="value" value="false">
                                <button type="submit" class="text-xs px-3 py-1 border rounded text-gray-700 hover:bg-gray-50">{{t "ui.detail.mark_open"}}</button>
                                {{else}}
                                <input type="hidden" name="value" value="true">
                                <button type="submit" {{if $blocked}}disabled{{end}} class="text-xs px-3 py-1 rounded text-white bg-indigo-600 hover:bg-indigo-700 disabled:bg-gray-300">{{t "ui.detail.mark_done"}}</button>
                                {{end}}
                                {{else}}
                                <label class="text-sm text-gray-700 w-40">{{t .LabelKey}}</label>
                                <input type="text" name="value" value="{{str .Value}}" {{if and $blocked (not .Completed)}}disabled{{end}}
                                       class="flex-1 px-2 py-1 border border-gray-300 rounded text-sm">
                                <button type="submit" {{if and $blocked (not .Completed)}}disabled{{end}} class="text-xs px-3 py-1 rounded text-white bg-indigo-600 hover:bg-indigo-700 disabled:bg-gray-300">{{t "ui.detail.save"}}</button>
                                {{end}}
                            </form>
                            {{end}}
                        </div>
                    </li>
                    {{end}}
                </ul>
            </section>
            {{end}}
        </div>

        <aside class="bg-white shadow rounded-lg p-6 h-fit">
            <h2 class="text-lg font-medium text-gray-900 mb-4">{{t "ui.detail.timeline"}}</h2>
            <ol class="space-y-2">
                {{range .Detail.Timeline}}
                <li class="flex items-center text-sm{{if .Current}} font-semibold text-indigo-700{{end}}">
                    <span class="w-6 text-gray-400">{{.Position}}</span>
                    <span class="h-2 w-2 rounded-full mr-2 {{if .Completed}}bg-green-500{{else if .Current}}bg-indigo-500{{else}}bg-gray-300{{end}}"></span>
                    {{t .LabelKey}}
                </li>
                {{end}}
            </ol>
        </aside>
    </div>
</div>
{{end}}`,

	"notes": `{{define "content"}}
<div class="px-4 py-6 sm:px-0 max-w-3xl">
    <a href="/onboardings/{{.ClientID}}" class="text-sm text-indigo-600 hover:text-indigo-500">&larr; {{.ClientID}}</a>
    <h1 class="mt-2 mb-6 text-2xl font-semibold text-gray-900">{{t "ui.notes.title"}}</h1>
    {{template "alert" .Error}}
    <form method="POST" action="/onboardings/{{.ClientID}}/notes" class="mb-6">
        <textarea name="text" rows="3" maxlength="2000" required class="w-full px-3 py-2 border border-gray-300 rounded-md text-sm"></textarea>
        <button type="submit" class="mt-2 px-4 py-2 text-sm rounded-md text-white bg-indigo-600 hover:bg-indigo-700">{{t "ui.notes.add"}}</button>
    </form>
    {{if .Notes}}
    <ul class="space-y-4">
        {{range .Notes}}
        <li class="bg-white shadow rounded-lg p-4">
            <div class="flex justify-between text-xs text-gray-500 mb-1">
                <span>{{.Author}}</span>
                <span title="{{formatTime .CreatedAt}}">{{ago .CreatedAt}}</span>
            </div>
            <p class="text-sm text-gray-800 whitespace-pre-line">{{.Text}}</p>
        </li>
        {{end}}
    </ul>
    {{else}}
    <p class="text-gray-500">{{t "ui.notes.empty"}}</p>
    {{end}}
</div>
{{end}}`,

	"ion": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <a href="/onboardings/{{.ClientID}}" class="text-sm text-indigo-600 hover:text-indigo-500">&larr; {{.ClientID}}</a>
    <h1 class="mt-2 mb-6 text-2xl font-semibold text-gray-900">{{t "ui.detail.ion"}}</h1>

    <h2 class="text-lg font-medium text-gray-900 mb-2">{{t "ui.ion.orders"}}</h2>
    {{if .ION.Orders}}
    <div class="bg-white shadow overflow-hidden sm:rounded-lg mb-8">
        <table class="min-w-full divide-y divide-gray-200 text-sm">
            <thead class="bg-gray-50 text-xs text-gray-500 uppercase">
                <tr>
                    <th class="px-4 py-2 text-left">{{t "ui.col.order"}}</th>
                    <th class="px-4 py-2 text-left">{{t "ui.col.product"}}</th>
                    <th class="px-4 py-2 text-right">{{t "ui.col.quantity"}}</th>
                    <th class="px-4 py-2 text-left">{{t "ui.col.status"}}</th>
                    <th class="px-4 py-2 text-right">{{t "ui.col.total"}}</th>
                    <th class="px-4 py-2 text-left">{{t "ui.col.ordered"}}</th>
                </tr>
            </thead>
            <tbody class="divide-y divide-gray-100">
                {{range .ION.Orders}}
                <tr>
                    <td class="px-4 py-2">{{.OrderID}}</td>
                    <td class="px-4 py-2">{{.Product}}</td>
                    <td class="px-4 py-2 text-right">{{.Quantity}}</td>
                    <td class="px-4 py-2">{{.Status}}</td>
                    <td class="px-4 py-2 text-right">{{money .TotalAmount .Currency}}</td>
                    <td class="px-4 py-2">{{formatDate .OrderedAt}}</td>
                </tr>
                {{end}}
            </tbody>
        </table>
    </div>
    {{else}}
    <p class="text-gray-500 mb-8">{{t "ui.ion.empty"}}</p>
    {{end}}

    <h2 class="text-lg font-medium text-gray-900 mb-2">{{t "ui.ion.subscriptions"}}</h2>
    {{if .ION.Subscriptions}}
    <div class="bg-white shadow overflow-hidden sm:rounded-lg">
        <table class="min-w-full divide-y divide-gray-200 text-sm">
            <thead class="bg-gray-50 text-xs text-gray-500 uppercase">
                <tr>
                    <th class="px-4 py-2 text-left">{{t "ui.col.subscription"}}</th>
                    <th class="px-4 py-2 text-left">{{t "ui.col.product"}}</th>
                    <th class="px-4 py-2 text-right">{{t "ui.col.seats"}}</th>
                    <th class="px-4 py-2 text-left">{{t "ui.col.status"}}</th>
                    <th class="px-4 py-2 text-left">{{t "ui.col.billing"}}</th>
                    <th class="px-4 py-2 text-left">{{t "ui.col.renews"}}</th>
                </tr>
            </thead>
            <tbody class="divide-y divide-gray-100">
                {{range .ION.Subscriptions}}
                <tr>
                    <td class="px-4 py-2">{{.SubscriptionID}}</td>
                    <td class="px-4 py-2">{{.Product}}</td>
                    <td class="px-4 py-2 text-right">{{.Seats}}</td>
                    <td class="px-4 py-2">{{.Status}}</td>
                    <td class="px-4 py-2">{{.BillingCycle}}</td>
                    <td class="px-4 py-2">{{formatDate .RenewsAt}}</td>
                </tr>
                {{end}}
            </tbody>
        </table>
    </div>
    {{else}}
    <p class="text-gray-500">{{t "ui.ion.empty"}}</p>
    {{end}}
</div>
{{end}}`,

	"error": `{{define "content"}}
<div class="min-h-screen flex items-center justify-center">
    <div class="text-center">
        <h1 class="text-4xl font-bold text-gray-900 mb-4">{{t "ui.error.title"}}</h1>
        <p class="text-gray-600 mb-8">{{t .Message}}</p>
        <a href="/" class="text-indigo-600 hover:text-indigo-500">{{t "ui.back"}}</a>
    </div>
</div>
{{end}}`,
}
