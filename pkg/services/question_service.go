package services

import (
	"fmt"
	"log"
	"os"

	"github.com/backsoul/trivia/pkg/models"
	"github.com/backsoul/trivia/pkg/redis"
)

// QuestionService maneja el banco de preguntas de trivia.
// Es la fuente de contenido del coordinador: cada ronda pide una
// pregunta aleatoria.
type QuestionService struct {
	redisClient *redis.RedisClient
}

// NewQuestionService crea una nueva instancia del servicio
func NewQuestionService(redisClient *redis.RedisClient) *QuestionService {
	return &QuestionService{
		redisClient: redisClient,
	}
}

// LoadQuestionsFromFile carga las preguntas desde el archivo JSON a Redis
func (s *QuestionService) LoadQuestionsFromFile(filePath string) error {
	log.Printf("📂 Cargando preguntas desde: %s", filePath)

	// Leer el archivo JSON
	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error leyendo archivo JSON: %v", err)
	}

	// Cargar a Redis usando el cliente
	if err := s.redisClient.LoadQuestionsFromJSON(jsonData); err != nil {
		return fmt.Errorf("error cargando preguntas a Redis: %v", err)
	}

	log.Println("✅ Preguntas cargadas exitosamente desde archivo")
	return nil
}

// RandomQuestion obtiene una pregunta aleatoria del banco
func (s *QuestionService) RandomQuestion() (*models.TriviaQuestion, error) {
	question, err := s.redisClient.GetRandomQuestion()
	if err != nil {
		return nil, fmt.Errorf("error obteniendo pregunta aleatoria: %v", err)
	}
	return question, nil
}

// GetQuestionMetadata obtiene los metadatos del banco de preguntas
func (s *QuestionService) GetQuestionMetadata() (interface{}, error) {
	metadata, err := s.redisClient.GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("error obteniendo metadatos: %v", err)
	}

	return metadata, nil
}

// GetQuestionCount obtiene el número total de preguntas
func (s *QuestionService) GetQuestionCount() (int, error) {
	count, err := s.redisClient.GetQuestionCount()
	if err != nil {
		return 0, fmt.Errorf("error obteniendo conteo de preguntas: %v", err)
	}

	return count, nil
}

// HealthCheck verifica que el servicio esté funcionando
func (s *QuestionService) HealthCheck() error {
	if err := s.redisClient.HealthCheck(); err != nil {
		return fmt.Errorf("error en health check de Redis: %v", err)
	}

	return nil
}

// ReloadQuestions recarga las preguntas desde el archivo JSON
func (s *QuestionService) ReloadQuestions(filePath string) error {
	log.Println("🔄 Recargando preguntas...")

	if err := s.LoadQuestionsFromFile(filePath); err != nil {
		return fmt.Errorf("error recargando preguntas: %v", err)
	}

	log.Println("✅ Preguntas recargadas exitosamente")
	return nil
}
