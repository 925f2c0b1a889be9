package web

type Link struct {
	Title string
	URL   string
}

// Capability is one collapsible section of the info page.
type Capability struct {
	Title     string
	Topics    []string
	Resources []Link
}

var Capabilities = []Capability{
	{
		Title:  "SQL",
		Topics: []string{"Query writing and optimization", "Database design and schema creation", "Data manipulation and analytics", "SQL best practices"},
		Resources: []Link{
			{"PostgreSQL Docs", "https://www.postgresql.org/docs/"},
			{"MySQL Docs", "https://dev.mysql.com/doc/"},
			{"SQLite Docs", "https://www.sqlite.org/docs.html"},
		},
	},
	{
		Title:  "Python",
		Topics: []string{"General Python programming", "Data structures and algorithms", "Package and dependency management", "Testing and debugging"},
		Resources: []Link{
			{"Python Documentation", "https://docs.python.org/3/"},
			{"Real Python", "https://realpython.com/"},
		},
	},
	{
		Title:  "AWS",
		Topics: []string{"AWS service overview and selection", "Infrastructure as Code (IaC)", "Deployment strategies", "AWS best practices"},
		Resources: []Link{
			{"AWS Documentation", "https://docs.aws.amazon.com/"},
			{"AWS Well-Architected", "https://aws.amazon.com/architecture/well-architected/"},
		},
	},
	{
		Title:  "Linux",
		Topics: []string{"Command line usage", "Shell scripting", "System administration", "Service management"},
		Resources: []Link{
			{"Linux Documentation Project", "https://tldp.org/"},
			{"Linux man pages", "https://www.kernel.org/doc/man-pages/"},
		},
	},
	{
		Title:  "Docker",
		Topics: []string{"Container creation and management", "Docker Compose", "Dockerfile optimization", "Container orchestration"},
		Resources: []Link{
			{"Docker Documentation", "https://docs.docker.com/"},
			{"Docker Hub", "https://hub.docker.com/"},
		},
	},
	{
		Title:  "FastAPI",
		Topics: []string{"API development", "Request/response handling", "Authentication and middleware", "API documentation"},
		Resources: []Link{
			{"FastAPI Documentation", "https://fastapi.tiangolo.com/"},
			{"FastAPI GitHub", "https://github.com/tiangolo/fastapi"},
		},
	},
	{
		Title:  "Django",
		Topics: []string{"Web application development", "Models and database interactions", "Views and templates", "Authentication and security"},
		Resources: []Link{
			{"Django Documentation", "https://docs.djangoproject.com/"},
			{"Django REST Framework", "https://www.django-rest-framework.org/"},
		},
	},
	{
		Title:  "Langchain",
		Topics: []string{"Chain creation and management", "LLM integration", "Agent development", "Memory and retrieval"},
		Resources: []Link{
			{"Langchain Documentation", "https://python.langchain.com/docs/get_started/introduction"},
			{"Langchain GitHub", "https://github.com/langchain-ai/langchain"},
		},
	},
}
