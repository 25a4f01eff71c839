package rod

const (
	BasicHTML = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
	<h1>Hello World</h1>
</body>
</html>`

	ScriptedHTML = `<!DOCTYPE html>
<html>
<body>
	<div id="result"></div>
	<script>
		document.getElementById('result').textContent = 'Rendered by script';
	</script>
</body>
</html>`
)
