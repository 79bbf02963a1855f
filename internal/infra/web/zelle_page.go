package web

import (
	"html/template"
	"net/http"

	"tagpay/internal/normalize"
)

var zellePage = template.Must(template.New("zelle").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Pay with Zelle</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.row{margin:8px 0} .label{color:#666;font-size:13px}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
  <h2>Pay with Zelle</h2>
  {{if .Name}}<div class="row"><div class="label">Recipient</div><strong>{{.Name}}</strong></div>{{end}}
  {{if .Email}}<div class="row"><div class="label">Email</div><strong>{{.Email}}</strong></div>{{end}}
  {{if .Phone}}<div class="row"><div class="label">Phone</div><strong>{{.Phone}}</strong></div>{{end}}
  <p class="small">Open your banking app, choose Zelle and send to the details above. Zelle has no payment links, so this page only shows where to send.</p>
</div>
</body>
</html>`))

func (s *Server) handleZellePage(w http.ResponseWriter, r *http.Request) {
	u := *r.URL
	u.Scheme = "https"
	u.Host = s.Normalizer.ServiceHost()
	info, err := s.Normalizer.ParseZelleURL(u.String())
	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_ = zellePage.Execute(w, normalize.ZelleInfo{})
		return
	}
	if info.Phone != "" {
		info.Phone = formatUSPhone(info.Phone)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = zellePage.Execute(w, info)
}

func formatUSPhone(digits string) string {
	if len(digits) != 10 {
		return digits
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}
