package main

import (
	"log"
	"strings"

	"github.com/backsoul/trivia/pkg/config"
	"github.com/backsoul/trivia/pkg/game"
	"github.com/backsoul/trivia/pkg/handlers"
	"github.com/backsoul/trivia/pkg/redis"
	"github.com/backsoul/trivia/pkg/services"
	"github.com/valyala/fasthttp"
)

var (
	cfg             *config.Config
	redisClient     *redis.RedisClient
	questionService *services.QuestionService
	stateService    *services.StateService
	directory       *game.Directory
	questionHandler *handlers.QuestionHandler
	lobbyHandler    *handlers.LobbyHandler
	wsHandler       *handlers.WSHandler
)

func main() {
	log.Println("🚀 Iniciando servidor de Trivia Multijugador")

	// Cargar configuración desde el entorno
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("❌ Error cargando configuración: %v", err)
	}

	// Inicializar Redis
	initRedis()

	// Inicializar servicios
	initServices()

	// Cargar preguntas al inicio
	loadInitialQuestions()

	// Configurar el servidor
	server := &fasthttp.Server{
		Handler: requestHandler,
		Name:    "Trivia Server",
	}

	log.Println("🎮 Servidor de Trivia Multijugador iniciado")
	log.Printf("📡 Escuchando en %s", cfg.Addr)
	log.Printf("🎯 %d rondas de %s por partida", cfg.TotalRounds, cfg.RoundDuration)
	log.Println("🔧 API Health: /api/health")
	log.Println("🎲 Lobbies: POST /api/lobbies")
	log.Println("🔌 WebSocket: /ws?code={code}&playerId={playerId}")
	log.Println("🔄 Presiona Ctrl+C para detener el servidor")

	if err := server.ListenAndServe(cfg.Addr); err != nil {
		log.Fatalf("Error al iniciar el servidor: %v", err)
	}
}

func initRedis() {
	log.Printf("🔌 Conectando a Redis en %s...", cfg.RedisAddr)
	redisClient = redis.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func initServices() {
	log.Println("⚙️  Inicializando servicios...")
	questionService = services.NewQuestionService(redisClient)
	stateService = services.NewStateService(redisClient)

	// El directorio de lobbies: cada lobby es su propio coordinador
	directory = game.NewDirectory(game.SettingsFromConfig(cfg), stateService, questionService)

	// Inicializar handlers
	questionHandler = handlers.NewQuestionHandler(questionService, cfg.QuestionsFile)
	lobbyHandler = handlers.NewLobbyHandler(directory)
	wsHandler = handlers.NewWSHandler(directory)
}

func loadInitialQuestions() {
	log.Println("📚 Cargando preguntas iniciales...")

	// Verificar si ya hay preguntas en Redis
	count, err := questionService.GetQuestionCount()
	if err == nil && count > 0 {
		log.Printf("✅ Ya hay %d preguntas en Redis", count)
		return
	}

	// Cargar preguntas desde el archivo JSON
	if err := questionService.LoadQuestionsFromFile(cfg.QuestionsFile); err != nil {
		log.Printf("⚠️ Error cargando preguntas iniciales: %v", err)
		log.Println("💡 El servidor continuará funcionando. Puedes cargar preguntas usando POST /api/questions/reload")
	} else {
		newCount, _ := questionService.GetQuestionCount()
		log.Printf("✅ %d preguntas cargadas exitosamente", newCount)
	}
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	// Obtener la ruta solicitada
	path := string(ctx.Path())
	method := string(ctx.Method())

	// Log de la petición
	log.Printf("📡 %s %s", method, path)

	// Configurar headers de respuesta
	ctx.Response.Header.Set("Server", "Trivia-FastHTTP/1.0")
	ctx.Response.Header.Set("Cache-Control", "no-cache")

	// Headers CORS para desarrollo
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	// Manejar preflight requests
	if method == "OPTIONS" {
		ctx.SetStatusCode(fasthttp.StatusOK)
		return
	}

	// Enrutamiento
	switch {
	// API Routes - Health
	case path == "/api/health":
		questionHandler.HealthCheck(ctx)

	// API Routes - Questions
	case path == "/api/questions/metadata" && method == "GET":
		questionHandler.GetQuestionMetadata(ctx)
	case path == "/api/questions/reload" && method == "POST":
		questionHandler.ReloadQuestions(ctx)

	// API Routes - Lobbies
	case path == "/api/lobbies" && method == "POST":
		lobbyHandler.CreateLobby(ctx)
	case strings.HasPrefix(path, "/api/lobbies/") && method == "GET":
		handleLobbyGetRoutes(ctx, path)
	case strings.HasPrefix(path, "/api/lobbies/") && method == "POST":
		handleLobbyPostRoutes(ctx, path)

	// WebSocket Route
	case path == "/ws":
		wsHandler.HandleWebSocket(ctx)

	default:
		serve404(ctx)
	}
}

func handleLobbyGetRoutes(ctx *fasthttp.RequestCtx, path string) {
	parts := strings.Split(path, "/")

	// /api/lobbies/{code}
	if len(parts) == 4 && parts[1] == "api" && parts[2] == "lobbies" {
		ctx.SetUserValue("code", parts[3])
		lobbyHandler.GetLobby(ctx)
		return
	}

	serve404(ctx)
}

func handleLobbyPostRoutes(ctx *fasthttp.RequestCtx, path string) {
	parts := strings.Split(path, "/")

	if len(parts) != 5 || parts[1] != "api" || parts[2] != "lobbies" {
		serve404(ctx)
		return
	}

	ctx.SetUserValue("code", parts[3])

	switch parts[4] {
	// /api/lobbies/{code}/join
	case "join":
		lobbyHandler.JoinLobby(ctx)
	// /api/lobbies/{code}/start
	case "start":
		lobbyHandler.StartLobby(ctx)
	// /api/lobbies/{code}/answer
	case "answer":
		lobbyHandler.SubmitAnswer(ctx)
	default:
		serve404(ctx)
	}
}

func serve404(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusNotFound)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"success": false, "error": "Ruta no encontrada", "endpoints": [` +
		`"GET /api/health", ` +
		`"GET /api/questions/metadata", ` +
		`"POST /api/questions/reload", ` +
		`"POST /api/lobbies", ` +
		`"GET /api/lobbies/{code}", ` +
		`"POST /api/lobbies/{code}/join", ` +
		`"POST /api/lobbies/{code}/start", ` +
		`"POST /api/lobbies/{code}/answer", ` +
		`"GET /ws?code={code}&playerId={playerId}"]}`)
}
