package recorder

// recordingScript installs the in-page observer. Events accumulate in a
// buffer drained by the poll loop; draining empties the buffer so the
// Go side is the single owner of the full log. Passwords are scrubbed
// in the page before the value ever crosses the protocol.
func recordingScript() string {
	return `
(function() {
	if (window.__tfRecorder) return;

	window.__tfRecorder = {
		events: [],
		recording: true,

		addEvent: function(event) {
			if (this.recording) {
				event.url = window.location.href;
				this.events.push(event);
			}
		},

		getEvents: function() {
			var events = this.events.slice();
			this.events = [];
			return events;
		},

		getSelector: function(element) {
			if (element.id) {
				return '#' + element.id;
			}
			var path = [];
			while (element && element.nodeType === Node.ELEMENT_NODE) {
				var selector = element.nodeName.toLowerCase();
				if (typeof element.className === 'string' && element.className.trim()) {
					selector += '.' + element.className.trim().split(/\s+/).join('.');
				}
				path.unshift(selector);
				element = element.parentNode;
			}
			return path.join(' > ');
		},

		isSecret: function(name) {
			name = (name || '').toLowerCase();
			return ['password', 'pass', 'pwd', 'secret', 'token'].some(function(f) {
				return name.indexOf(f) !== -1;
			});
		}
	};

	document.addEventListener('click', function(event) {
		if (!event.isTrusted) return;
		window.__tfRecorder.addEvent({
			type: 'click',
			selector: window.__tfRecorder.getSelector(event.target),
			text: (event.target.textContent || '').trim().substring(0, 100),
			timestamp: Date.now()
		});
	}, true);

	document.addEventListener('input', function(event) {
		if (!event.isTrusted || !event.target.tagName) return;
		var tag = event.target.tagName.toLowerCase();
		if (tag !== 'input' && tag !== 'textarea') return;
		var isPassword = event.target.type === 'password' ||
			window.__tfRecorder.isSecret(event.target.name);
		window.__tfRecorder.addEvent({
			type: 'input',
			selector: window.__tfRecorder.getSelector(event.target),
			value: isPassword ? '[PASSWORD]' : (event.target.value || '').substring(0, 100),
			inputType: event.target.type,
			fieldName: event.target.name || '',
			timestamp: Date.now()
		});
	}, true);

	document.addEventListener('keydown', function(event) {
		if (!event.isTrusted) return;
		// Only navigation-relevant keys; plain typing is already covered
		// by input events and would flood the log.
		if (event.key !== 'Enter' && event.key !== 'Tab' && event.key !== 'Escape' &&
			!event.ctrlKey && !event.altKey && !event.metaKey) return;
		window.__tfRecorder.addEvent({
			type: 'keydown',
			selector: window.__tfRecorder.getSelector(event.target),
			key: event.key,
			timestamp: Date.now()
		});
	}, true);

	document.addEventListener('submit', function(event) {
		if (!event.isTrusted) return;
		var fields = {};
		try {
			var data = new FormData(event.target);
			data.forEach(function(value, key) {
				fields[key] = window.__tfRecorder.isSecret(key)
					? '[MASKED]'
					: (value || '').toString().substring(0, 100);
			});
		} catch (e) {}
		window.__tfRecorder.addEvent({
			type: 'submit',
			selector: window.__tfRecorder.getSelector(event.target),
			fields: fields,
			timestamp: Date.now()
		});
	}, true);

	var mouseMoveThrottle = null;
	document.addEventListener('mousemove', function(event) {
		if (mouseMoveThrottle) clearTimeout(mouseMoveThrottle);
		mouseMoveThrottle = setTimeout(function() {
			window.__tfRecorder.addEvent({
				type: 'mousemove',
				selector: window.__tfRecorder.getSelector(event.target),
				timestamp: Date.now()
			});
		}, 500);
	}, true);

	var scrollThrottle = null;
	document.addEventListener('scroll', function() {
		if (scrollThrottle) clearTimeout(scrollThrottle);
		scrollThrottle = setTimeout(function() {
			window.__tfRecorder.addEvent({
				type: 'scroll',
				selector: 'window',
				timestamp: Date.now()
			});
		}, 200);
	}, true);

	if (typeof MutationObserver !== 'undefined' && document.body) {
		var observer = new MutationObserver(function(mutations) {
			var tags = [], idents = [];
			mutations.forEach(function(m) {
				m.addedNodes.forEach(function(n) {
					if (n.nodeType !== Node.ELEMENT_NODE) return;
					tags.push(n.nodeName.toLowerCase());
					if (n.id) idents.push(n.id);
					if (typeof n.className === 'string') idents.push(n.className);
				});
			});
			if (tags.length > 0) {
				window.__tfRecorder.addEvent({
					type: 'mutation',
					mutation: { tags: tags.slice(0, 20), identifiers: idents.slice(0, 20) },
					timestamp: Date.now()
				});
			}
		});
		observer.observe(document.body, { childList: true, subtree: true });
	}
})();
`
}

// drainScript empties and returns the in-page event buffer.
const drainScript = `window.__tfRecorder ? window.__tfRecorder.getEvents() : []`
