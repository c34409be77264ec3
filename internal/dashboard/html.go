package dashboard

// indexHTML is a minimal live view of the SSE stream. The HTML/Javascript
// dashboard template is explicitly out of scope (external collaborators
// own the real rendering); this page exists so the `/` route is never
// empty and so the endpoint is exercisable without an external client.
const indexHTML = `<!DOCTYPE html>
<html>
<head><title>mcpstress dashboard</title></head>
<body>
<pre id="log"></pre>
<script>
var log = document.getElementById("log");
var es = new EventSource("/events");
["meta", "window", "message", "complete", "new-run", "run-complete", "all-complete"].forEach(function (name) {
  es.addEventListener(name, function (e) {
    log.textContent += name + ": " + e.data + "\n";
    if (name === "complete" || name === "all-complete") {
      es.close();
    }
  });
});
</script>
</body>
</html>
`
