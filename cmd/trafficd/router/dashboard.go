package router

// dashboardHTML is the embedded monitoring page. It polls /traffic/current
// and redraws a history + prediction chart on each refresh; both %s verbs
// receive the default station name.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>TrafficPulse — %s</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; background: #fafafa; color: #222; }
  h1 { font-size: 1.3rem; }
  .cards { display: flex; gap: 1rem; margin-bottom: 1rem; flex-wrap: wrap; }
  .card { background: #fff; border: 1px solid #ddd; border-radius: 6px; padding: 0.8rem 1.2rem; min-width: 10rem; }
  .card .label { font-size: 0.75rem; color: #777; text-transform: uppercase; }
  .card .value { font-size: 1.6rem; font-weight: 600; }
  .alert-on { border-color: #c0392b; background: #fdecea; }
  .alert-on .value { color: #c0392b; }
  #status { color: #777; font-size: 0.85rem; }
  canvas { background: #fff; border: 1px solid #ddd; border-radius: 6px; }
</style>
</head>
<body>
<h1>TrafficPulse — station <span id="station">%s</span></h1>
<div class="cards">
  <div class="card"><div class="label">Current count</div><div class="value" id="current">–</div></div>
  <div class="card"><div class="label">Predicted peak</div><div class="value" id="peak">–</div></div>
  <div class="card"><div class="label">Temperature</div><div class="value" id="temp">–</div></div>
  <div class="card" id="alertCard"><div class="label">Congestion alert</div><div class="value" id="alert">–</div></div>
</div>
<canvas id="chart" width="960" height="320"></canvas>
<p id="status">loading…</p>
<script>
const station = document.getElementById('station').textContent;

async function refresh() {
  try {
    const resp = await fetch('/traffic/current?station=' + station);
    if (!resp.ok) throw new Error('HTTP ' + resp.status);
    render(await resp.json());
  } catch (err) {
    document.getElementById('status').textContent = 'fetch failed: ' + err;
  }
}

function render(snap) {
  const hist = snap.history || [];
  const preds = snap.predictions || [];
  const last = hist[hist.length - 1];

  document.getElementById('current').textContent = last ? Math.round(last.count) : '–';
  document.getElementById('peak').textContent = preds.length ? Math.round(snap.alert.peakCount) : '–';
  document.getElementById('temp').textContent = last ? last.temperatureC.toFixed(1) + ' °C' : '–';

  const alertEl = document.getElementById('alert');
  const card = document.getElementById('alertCard');
  if (snap.alert.active) {
    alertEl.textContent = 'ACTIVE';
    card.classList.add('alert-on');
  } else {
    alertEl.textContent = 'clear';
    card.classList.remove('alert-on');
  }

  document.getElementById('status').textContent =
    snap.state === 'warming_up' ? 'collecting data…'
      : 'state: ' + snap.state + ' · updated ' + new Date(snap.generatedAt).toLocaleTimeString();

  drawChart(hist, preds, snap.alert.threshold);
}

function drawChart(hist, preds, threshold) {
  const c = document.getElementById('chart');
  const ctx = c.getContext('2d');
  ctx.clearRect(0, 0, c.width, c.height);

  const points = hist.map(o => o.count).concat(preds.map(p => p.count));
  if (points.length < 2) return;

  const max = Math.max(threshold, ...points) * 1.1;
  const xw = c.width / (points.length - 1);
  const y = v => c.height - (v / max) * (c.height - 20) - 10;

  // threshold line
  ctx.strokeStyle = '#c0392b';
  ctx.setLineDash([6, 4]);
  ctx.beginPath();
  ctx.moveTo(0, y(threshold));
  ctx.lineTo(c.width, y(threshold));
  ctx.stroke();
  ctx.setLineDash([]);

  // history
  ctx.strokeStyle = '#2980b9';
  ctx.lineWidth = 2;
  ctx.beginPath();
  hist.forEach((o, i) => i === 0 ? ctx.moveTo(i * xw, y(o.count)) : ctx.lineTo(i * xw, y(o.count)));
  ctx.stroke();

  // predictions continue from the last history point
  ctx.strokeStyle = '#e67e22';
  ctx.setLineDash([4, 4]);
  ctx.beginPath();
  ctx.moveTo((hist.length - 1) * xw, y(hist[hist.length - 1].count));
  preds.forEach((p, i) => ctx.lineTo((hist.length + i) * xw, y(p.count)));
  ctx.stroke();
  ctx.setLineDash([]);
}

refresh();
setInterval(refresh, 5000);
</script>
</body>
</html>
`
